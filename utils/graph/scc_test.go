package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSCC(t *testing.T) {
	scc := depGraph.SCC([]string{"main"})

	comps := [][]string{}
	for _, c := range scc.Components {
		c = append([]string(nil), c...)
		sort.Strings(c)
		comps = append(comps, c)
	}
	assert.ElementsMatch(t, [][]string{
		{"expr", "parse", "term"}, {"lex"}, {"atom"}, {"log"}, {"main"},
	}, comps)

	for i, comp := range scc.Components {
		for _, m := range comp {
			for _, e := range depGraph.Edges(m) {
				assert.LessOrEqual(t, scc.ComponentOf(e), i, "edge %s -> %s", m, e)
			}
		}
	}

	assert.Equal(t, -1, scc.ComponentOf("unrelated"))
	assert.True(t, scc.Cyclic(scc.ComponentOf("expr")))
	assert.True(t, scc.Cyclic(scc.ComponentOf("log")), "self loop")
	assert.False(t, scc.Cyclic(scc.ComponentOf("atom")))
	assert.False(t, scc.Cyclic(-1))
}

func TestSCCMultipleStarts(t *testing.T) {
	scc := depGraph.SCC([]string{"atom", "lex", "main"})
	require.Len(t, scc.Components, 5)
	assert.Equal(t, 0, scc.ComponentOf("atom"))
	assert.Equal(t, len(scc.Components)-1, scc.ComponentOf("main"))
}

func TestSCCLongChain(t *testing.T) {
	const n = 100000
	G := Of(func(i int) []int {
		if i+1 < n {
			return []int{i + 1}
		}
		return []int{0}
	})
	scc := G.SCC([]int{0})
	require.Len(t, scc.Components, 1)
	assert.Len(t, scc.Components[0], n)
}
