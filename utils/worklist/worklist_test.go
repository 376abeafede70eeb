package worklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingOnce(t *testing.T) {
	w := New(1, 2, 1)
	assert.Equal(t, 2, w.Len())

	w.Add(2)
	w.Add(3)
	assert.Equal(t, []int{1, 2, 3}, []int{w.Next(), w.Next(), w.Next()})
	assert.True(t, w.IsEmpty())

	// Processed elements may be queued again.
	w.Add(1)
	assert.Equal(t, 1, w.Len())
}

func TestStart(t *testing.T) {
	visited := []int{}
	Start(0, func(n int, add func(int)) {
		visited = append(visited, n)
		if n < 3 {
			add(n + 1)
			add(n + 1)
		}
	})
	assert.Equal(t, []int{0, 1, 2, 3}, visited)
}
