package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// deps is a dependency graph between methods of a small parser: parse,
// expr and term are mutually recursive and log calls itself.
var deps = map[string][]string{
	"main":  {"parse", "log"},
	"parse": {"lex", "expr"},
	"expr":  {"term", "parse"},
	"term":  {"expr", "atom"},
	"lex":   {"atom", "log"},
	"atom":  {},
	"log":   {"log"},
}

var depGraph = Of(func(m string) []string { return deps[m] })

func TestEdgesAreMemoized(t *testing.T) {
	calls := 0
	G := Of(func(i int) []int {
		calls++
		return []int{i + 1}
	})
	assert.Equal(t, []int{1}, G.Edges(0))
	assert.Equal(t, []int{1}, G.Edges(0))
	assert.Equal(t, 1, calls)
}

func TestFromSuccessors(t *testing.T) {
	G := FromSuccessors([][]int{{1, 2}, {2}, nil})
	assert.Equal(t, []int{1, 2}, G.Edges(0))
	assert.Empty(t, G.Edges(2))
	assert.Empty(t, G.Edges(7))
}

func TestBFS(t *testing.T) {
	seen := []string{}
	stopped := depGraph.BFS("lex", func(m string) bool {
		seen = append(seen, m)
		return false
	})
	assert.False(t, stopped)
	assert.Equal(t, []string{"lex", "atom", "log"}, seen)

	assert.True(t, depGraph.BFS("main", func(m string) bool { return m == "term" }))
	assert.False(t, depGraph.BFS("atom", func(m string) bool { return m == "term" }))
}
