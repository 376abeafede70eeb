// Package origins computes which instructions may produce the value a method
// returns, and which parameters are used for anything besides being moved
// around.
package origins

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/frame"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/utils/worklist"
)

// Origins of a method body.
type Origins struct {
	// Instructions marks the instructions whose result may be returned.
	Instructions []bool
	// Leaking marks the parameters that are consumed by some instruction
	// other than a load, store, stack shuffle or checkcast.
	Leaking []bool
}

// Leaks reports whether parameter n leaks.
func (o Origins) Leaks(n int) bool {
	return n < len(o.Leaking) && o.Leaking[n]
}

// ResultRelevant reports whether instruction i may produce the returned
// value.
func (o Origins) ResultRelevant(i int) bool {
	return i < len(o.Instructions) && o.Instructions[i]
}

// sources is the set of instructions and parameters a value may come from.
// Instruction i is encoded as i, parameter n as the number of instructions
// plus n.
type sources struct {
	size int
	set  []int
}

func (s sources) Size() int {
	return s.size
}

func (s sources) String() string {
	return fmt.Sprint(s.set)
}

func (s sources) equal(o sources) bool {
	if s.size != o.size || len(s.set) != len(o.set) {
		return false
	}
	for i := range s.set {
		if s.set[i] != o.set[i] {
			return false
		}
	}
	return true
}

func (s sources) union(o sources) sources {
	size := s.size
	if o.size > size {
		size = o.size
	}
	set := make([]int, 0, len(s.set)+len(o.set))
	i, j := 0, 0
	for i < len(s.set) || j < len(o.set) {
		switch {
		case j == len(o.set) || i < len(s.set) && s.set[i] < o.set[j]:
			set = append(set, s.set[i])
			i++
		case i == len(s.set) || o.set[j] < s.set[i]:
			set = append(set, o.set[j])
			j++
		default:
			set = append(set, s.set[i])
			i++
			j++
		}
	}
	return sources{size, set}
}

type interpreter struct {
	insns     int
	leaking   []bool
	returning []bool
	current   int
}

func (it *interpreter) consume(vs ...sources) {
	for _, v := range vs {
		for _, s := range v.set {
			if s >= it.insns {
				it.leaking[s-it.insns] = true
			}
		}
	}
}

func (it *interpreter) fresh(sort ir.Sort) sources {
	return sources{sort.Size(), []int{it.current}}
}

func (it *interpreter) Generic(sort ir.Sort) sources {
	if sort == ir.VoidSort {
		return sources{size: 1}
	}
	return sources{size: sort.Size()}
}

func (it *interpreter) New(in ir.Instruction) sources {
	switch in.Op {
	case ir.GetStatic:
		return it.fresh(in.Field.Type().Sort)
	case ir.New:
		return it.fresh(ir.RefSort)
	}
	return it.fresh(in.Sort)
}

func (it *interpreter) Copy(in ir.Instruction, v sources) sources {
	return v
}

func (it *interpreter) Unary(in ir.Instruction, v sources) sources {
	switch in.Op {
	case ir.CheckCast:
		return v
	case ir.Return:
		for _, s := range v.set {
			if s < it.insns {
				it.returning[s] = true
			}
		}
	}
	it.consume(v)
	switch in.Op {
	case ir.GetField:
		return it.fresh(in.Field.Type().Sort)
	case ir.Unary:
		return it.fresh(in.To)
	case ir.NewArray:
		return it.fresh(ir.RefSort)
	}
	return it.fresh(ir.IntSort)
}

func (it *interpreter) Binary(in ir.Instruction, v1, v2 sources) sources {
	it.consume(v1, v2)
	if in.Op == ir.Compare {
		return it.fresh(ir.IntSort)
	}
	return it.fresh(in.Sort)
}

func (it *interpreter) Ternary(in ir.Instruction, v1, v2, v3 sources) sources {
	it.consume(v1, v2, v3)
	return sources{size: 1}
}

func (it *interpreter) Nary(in ir.Instruction, args []sources) sources {
	it.consume(args...)
	_, ret := in.Call.Signature()
	return it.fresh(ret.Sort)
}

// Analyze runs the source tracking dataflow to a fixed point.
func Analyze(b *ir.Body, g cfg.Graph) Origins {
	n := len(b.Insns)
	it := &interpreter{
		insns:     n,
		leaking:   make([]bool, len(b.Params)),
		returning: make([]bool, n),
	}
	if n == 0 {
		return Origins{Instructions: it.returning, Leaking: it.leaking}
	}

	frames := make([]*frame.Frame[sources], n)
	entry := frame.Entry[sources](b, it, func(p int, t ir.Type) sources {
		if p < 0 {
			return sources{size: 1}
		}
		return sources{t.Sort.Size(), []int{n + p}}
	})
	frames[0] = &entry

	merge := func(at int, f frame.Frame[sources]) bool {
		old := frames[at]
		if old == nil {
			frames[at] = &f
			return true
		}
		changed := false
		for i, v := range f.Locals {
			if u := old.Locals[i].union(v); !u.equal(old.Locals[i]) {
				old.Locals[i] = u
				changed = true
			}
		}
		if len(old.Stack) != len(f.Stack) {
			panic(fmt.Errorf("%v: inconsistent stack height at %d", b.Method, at))
		}
		for i, v := range f.Stack {
			if u := old.Stack[i].union(v); !u.equal(old.Stack[i]) {
				old.Stack[i] = u
				changed = true
			}
		}
		return changed
	}

	worklist.Start(0, func(i int, add func(int)) {
		it.current = i
		in := b.Insns[i]
		out := frames[i].Copy()
		out.Execute(in, it)
		for _, s := range g.Successors(i) {
			var next frame.Frame[sources]
			if g.IsExceptionalEdge(i, s) {
				next = frames[i].Catch(sources{size: 1})
			} else {
				next = out.Copy()
			}
			if merge(s, next) {
				add(s)
			}
		}
	})

	return Origins{Instructions: it.returning, Leaking: it.leaking}
}

// Relevant lists the result-relevant instruction indices.
func (o Origins) Relevant() []int {
	res := []int{}
	for i, r := range o.Instructions {
		if r {
			res = append(res, i)
		}
	}
	sort.Ints(res)
	return res
}
