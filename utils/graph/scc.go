package graph

// Decomposition splits the part of a graph reachable from some start nodes
// into strongly connected components. Components are listed in reverse
// topological order: an edge never leads to a component with a larger index.
type Decomposition[T comparable] struct {
	Components [][]T
	index      map[T]int
	g          Graph[T]
}

// SCC runs Tarjan's algorithm with an explicit call stack, so long
// dependency chains do not exhaust the goroutine stack.
func (G Graph[T]) SCC(starts []T) Decomposition[T] {
	d := Decomposition[T]{index: make(map[T]int), g: G}

	order := make(map[T]int)
	low := make(map[T]int)
	onStack := make(map[T]bool)
	var stack []T

	type call struct {
		node T
		next int
	}
	var calls []call

	enter := func(n T) {
		order[n] = len(order)
		low[n] = order[n]
		stack = append(stack, n)
		onStack[n] = true
		calls = append(calls, call{node: n})
	}

	for _, s := range starts {
		if _, seen := order[s]; seen {
			continue
		}
		enter(s)

		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			n := top.node
			if edges := G.Edges(n); top.next < len(edges) {
				e := edges[top.next]
				top.next++
				if _, seen := order[e]; !seen {
					enter(e)
				} else if onStack[e] && order[e] < low[n] {
					low[n] = order[e]
				}
				continue
			}

			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				if p := calls[len(calls)-1].node; low[n] < low[p] {
					low[p] = low[n]
				}
			}
			if low[n] != order[n] {
				continue
			}

			var comp []T
			for {
				x := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[x] = false
				d.index[x] = len(d.Components)
				comp = append(comp, x)
				if x == n {
					break
				}
			}
			d.Components = append(d.Components, comp)
		}
	}

	return d
}

// ComponentOf is -1 for nodes outside the decomposition.
func (d Decomposition[T]) ComponentOf(node T) int {
	if c, ok := d.index[node]; ok {
		return c
	}
	return -1
}

// Cyclic holds for components with more than one node or a self loop.
func (d Decomposition[T]) Cyclic(c int) bool {
	if c < 0 || c >= len(d.Components) {
		return false
	}
	comp := d.Components[c]
	if len(comp) > 1 {
		return true
	}
	for _, e := range d.g.Edges(comp[0]) {
		if e == comp[0] {
			return true
		}
	}
	return false
}
