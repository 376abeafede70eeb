// Package graph runs the standard graph algorithms over any node type given
// only its edge relation: instruction indices for reachability in control
// flow, and fact keys for the equation dependency graph.
package graph

// Graph is an edge relation whose successor lists are computed at most once
// per node. A Graph is not safe for concurrent use.
type Graph[T comparable] struct {
	edgesOf func(T) []T
	cache   map[T][]T
}

func Of[T comparable](edgesOf func(node T) []T) Graph[T] {
	return Graph[T]{edgesOf: edgesOf, cache: make(map[T][]T)}
}

// FromSuccessors is the graph of a successor table over 0..len(succ)-1.
func FromSuccessors(succ [][]int) Graph[int] {
	return Of(func(i int) []int {
		if i < 0 || i >= len(succ) {
			return nil
		}
		return succ[i]
	})
}

func (G Graph[T]) Edges(node T) []T {
	if es, ok := G.cache[node]; ok {
		return es
	}
	es := G.edgesOf(node)
	G.cache[node] = es
	return es
}
