package hmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// caseless compares strings up to case and hashes only their length, so
// most keys collide.
type caseless struct{}

func (caseless) Hash(s string) uint32 { return uint32(len(s)) }
func (caseless) Equal(a, b string) bool { return strings.EqualFold(a, b) }

func TestMap(t *testing.T) {
	m := New[string, int](caseless{})
	m.Set("abc", 1)
	m.Set("xyz", 2)
	m.Set("ABC", 3)

	assert.Equal(t, 2, m.Len())
	v, ok := m.Lookup("aBc")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = m.Lookup("abd")
	assert.False(t, ok)

	assert.Equal(t, 5, m.Update("XYZ", func(old int, found bool) int {
		assert.True(t, found)
		return old + 3
	}))
	assert.Equal(t, 1, m.Update("new", func(old int, found bool) int {
		assert.False(t, found)
		return old + 1
	}))
	assert.Equal(t, 3, m.Len())

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	assert.Equal(t, 9, sum)

	visits := 0
	m.Range(func(string, int) bool {
		visits++
		return false
	})
	assert.Equal(t, 1, visits)
}
