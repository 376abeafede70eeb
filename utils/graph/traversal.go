package graph

import "github.com/cs-au-dk/contra/utils/worklist"

// BFS visits the nodes reachable from start in breadth-first order until
// visit returns true. It reports whether the traversal was stopped.
func (G Graph[T]) BFS(start T, visit func(node T) (stop bool)) (stopped bool) {
	seen := map[T]bool{start: true}
	worklist.Start(start, func(node T, add func(T)) {
		if stopped {
			return
		}
		if stopped = visit(node); stopped {
			return
		}
		for _, next := range G.Edges(node) {
			if !seen[next] {
				seen[next] = true
				add(next)
			}
		}
	})
	return
}
