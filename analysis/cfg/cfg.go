package cfg

import (
	"fmt"

	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/utils/graph"
)

// Graph is the per-method control flow structure consumed by the engines.
// Nodes are instruction indices.
type Graph interface {
	// Size is the number of instructions.
	Size() int
	Successors(i int) []int
	IsExceptionalEdge(i, j int) bool
	IsLoopHeader(i int) bool
}

type edge struct{ from, to int }

// ControlFlow is a table-backed Graph.
type ControlFlow struct {
	succ        [][]int
	exceptional map[edge]struct{}
	loopHeaders []bool
}

var _ Graph = (*ControlFlow)(nil)

// Build derives the control flow of a method body, including exceptional
// edges from every instruction covered by a handler to the handler. Loop
// headers are computed from the result.
func Build(b *ir.Body) *ControlFlow {
	n := len(b.Insns)
	succ := make([][]int, n)
	add := func(from, to int) {
		for _, s := range succ[from] {
			if s == to {
				return
			}
		}
		succ[from] = append(succ[from], to)
	}

	for i, in := range b.Insns {
		if in.FallsThrough() && i+1 < n {
			add(i, i+1)
		}
		switch in.Op {
		case ir.If, ir.IfCmp, ir.Goto:
			add(i, in.Target)
		case ir.Switch:
			for _, t := range in.Targets {
				add(i, t)
			}
		}
	}

	exceptional := make(map[edge]struct{})
	for _, h := range b.Handlers {
		for i := h.Start; i < h.End && i < n; i++ {
			if _, normal := find(succ[i], h.Handler); !normal {
				exceptional[edge{i, h.Handler}] = struct{}{}
			}
			add(i, h.Handler)
		}
	}

	return New(succ, exceptional)
}

func find(xs []int, x int) (int, bool) {
	for i, y := range xs {
		if x == y {
			return i, true
		}
	}
	return -1, false
}

// New creates a ControlFlow from a successor table. The exceptional edges
// must also appear in the table.
func New(succ [][]int, exceptional map[edge]struct{}) *ControlFlow {
	if exceptional == nil {
		exceptional = make(map[edge]struct{})
	}
	cf := &ControlFlow{succ: succ, exceptional: exceptional}
	cf.loopHeaders = loopHeaders(succ)
	return cf
}

// FromEdges is a convenience constructor for hand-written graphs.
func FromEdges(size int, edges [][2]int, exceptional ...[2]int) *ControlFlow {
	succ := make([][]int, size)
	for _, e := range edges {
		succ[e[0]] = append(succ[e[0]], e[1])
	}
	exc := make(map[edge]struct{})
	for _, e := range exceptional {
		succ[e[0]] = append(succ[e[0]], e[1])
		exc[edge{e[0], e[1]}] = struct{}{}
	}
	return New(succ, exc)
}

func (cf *ControlFlow) Size() int {
	return len(cf.succ)
}

func (cf *ControlFlow) Successors(i int) []int {
	return cf.succ[i]
}

func (cf *ControlFlow) IsExceptionalEdge(i, j int) bool {
	_, ok := cf.exceptional[edge{i, j}]
	return ok
}

func (cf *ControlFlow) IsLoopHeader(i int) bool {
	return cf.loopHeaders[i]
}

// HasBranches holds when some instruction has more than one successor,
// including exceptional ones.
func HasBranches(g Graph) bool {
	for i := 0; i < g.Size(); i++ {
		if len(g.Successors(i)) > 1 {
			return true
		}
	}
	return false
}

// loopHeaders marks the targets of retreating edges in a depth-first
// traversal from the entry. A node dominating the source of an edge into it
// is an ancestor in every traversal, so natural loop headers are all marked;
// every cycle of an irreducible region has a retreating edge as well.
func loopHeaders(succ [][]int) []bool {
	headers := make([]bool, len(succ))
	if len(succ) == 0 {
		return headers
	}

	const (
		unvisited = iota
		onStack
		done
	)
	state := make([]int, len(succ))

	type frame struct{ node, next int }
	stack := []frame{{0, 0}}
	state[0] = onStack
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(succ[top.node]) {
			state[top.node] = done
			stack = stack[:len(stack)-1]
			continue
		}
		s := succ[top.node][top.next]
		top.next++
		switch state[s] {
		case unvisited:
			state[s] = onStack
			stack = append(stack, frame{s, 0})
		case onStack:
			headers[s] = true
		}
	}

	return headers
}

// Reachable lists the instructions reachable from the entry.
func Reachable(g Graph) []bool {
	seen := make([]bool, g.Size())
	if g.Size() == 0 {
		return seen
	}
	succ := make([][]int, g.Size())
	for i := range succ {
		succ[i] = g.Successors(i)
	}
	graph.FromSuccessors(succ).BFS(0, func(i int) bool {
		seen[i] = true
		return false
	})
	return seen
}

func (cf *ControlFlow) String() string {
	s := ""
	for i, succ := range cf.succ {
		mark := " "
		if cf.loopHeaders[i] {
			mark = "*"
		}
		s += fmt.Sprintf("%s%d -> %v\n", mark, i, succ)
	}
	return s
}
