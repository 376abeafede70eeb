// Package purity summarizes the side effects of a method body: which
// objects it mutates, which calls it makes with which arguments, which
// fields it reads, and where its result comes from.
package purity

import (
	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/frame"
	"github.com/cs-au-dk/contra/analysis/ir"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/utils/worklist"
)

type data = L.DataValue

// interpreter tracks value provenance and records the effect of the
// executing instruction.
type interpreter struct {
	owned   map[ir.Field]bool
	current int
	effects []L.EffectSet
	returns *data
}

func unknown(sort ir.Sort) data {
	if sort.Size() == 2 {
		return L.UnknownValue2
	}
	return L.UnknownValue1
}

func (it *interpreter) record(q L.EffectQuantum) {
	it.effects[it.current] = it.effects[it.current].Add(q)
}

func (it *interpreter) top() {
	it.effects[it.current] = L.TopEffect()
}

// mutate records a write into the object v.
func (it *interpreter) mutate(v data) {
	switch v.Kind {
	case L.ThisData, L.OwnedData:
		it.record(L.ThisChangeQuantum)
	case L.ParamData:
		it.record(L.ParamChangeQuantum(v.Param))
	case L.LocalData:
	case L.ReturnData:
		it.record(L.ReturnChange(v.Key))
	default:
		it.top()
	}
}

func fieldRead(f ir.Field) L.EffectQuantum {
	return L.FieldRead(defs.MkKey(f.Method(), defs.VolatileDir(), true))
}

func (it *interpreter) Generic(sort ir.Sort) data {
	return unknown(sort)
}

func (it *interpreter) New(in ir.Instruction) data {
	switch in.Op {
	case ir.New:
		return L.LocalValue
	case ir.GetStatic:
		it.record(fieldRead(in.Field))
		return unknown(in.Field.Type().Sort)
	}
	return unknown(in.Sort)
}

func (it *interpreter) Copy(in ir.Instruction, v data) data {
	return v
}

func (it *interpreter) Unary(in ir.Instruction, v data) data {
	switch in.Op {
	case ir.GetField:
		it.record(fieldRead(in.Field))
		if v.Kind == L.ThisData && it.owned[in.Field] {
			return L.OwnedValue
		}
		return unknown(in.Field.Type().Sort)
	case ir.PutStatic:
		it.top()
	case ir.NewArray:
		return L.LocalValue
	case ir.CheckCast:
		return v
	case ir.Unary:
		return unknown(in.To)
	case ir.Return:
		if in.Sort == ir.RefSort {
			if it.returns == nil {
				it.returns = &v
			} else {
				joined := L.JoinData(*it.returns, v)
				it.returns = &joined
			}
		}
	}
	return L.UnknownValue1
}

func (it *interpreter) Binary(in ir.Instruction, v1, v2 data) data {
	switch in.Op {
	case ir.PutField:
		it.mutate(v1)
	case ir.Compare:
		return L.UnknownValue1
	}
	return unknown(in.Sort)
}

func (it *interpreter) Ternary(in ir.Instruction, v1, v2, v3 data) data {
	it.mutate(v1)
	return L.UnknownValue1
}

func (it *interpreter) Nary(in ir.Instruction, args []data) data {
	_, ret := in.Call.Signature()
	if in.Op == ir.InvokeDynamic {
		if in.Call.Lambda {
			return L.LocalValue
		}
		it.top()
		return unknown(ret.Sort)
	}

	key := defs.MkKey(in.Call.Method, defs.PureDir(), in.Call.Stable())
	it.record(L.CallEffect(key, append([]data(nil), args...), in.Call.Static()))
	if ret.IsRef() {
		return L.ReturnValue(key)
	}
	return unknown(ret.Sort)
}

func joinFrames(old *frame.Frame[data], f frame.Frame[data]) bool {
	changed := false
	join := func(dst []data, src []data) {
		for i, v := range src {
			if j := L.JoinData(dst[i], v); j != dst[i] {
				dst[i] = j
				changed = true
			}
		}
	}
	join(old.Locals, f.Locals)
	if len(old.Stack) == len(f.Stack) {
		join(old.Stack, f.Stack)
	}
	return changed
}

// Analyze computes the effects of a method body. owned lists the owned
// fields of the program.
func Analyze(b *ir.Body, g cfg.Graph, owned map[ir.Field]bool) L.Effects {
	n := len(b.Insns)
	it := &interpreter{owned: owned, effects: make([]L.EffectSet, n)}
	if n == 0 {
		return L.Effects{Returns: L.UnknownValue1}
	}

	frames := make([]*frame.Frame[data], n)
	entry := frame.Entry[data](b, it, func(p int, t ir.Type) data {
		if p < 0 {
			return L.ThisValue
		}
		if t.IsRef() {
			return L.ParamValue(p)
		}
		return unknown(t.Sort)
	})
	frames[0] = &entry

	worklist.Start(0, func(i int, add func(int)) {
		it.current = i
		it.effects[i] = L.EffectSet{}
		post := frames[i].Copy()
		post.Execute(b.Insns[i], it)
		for _, s := range g.Successors(i) {
			var next frame.Frame[data]
			if g.IsExceptionalEdge(i, s) {
				next = frames[i].Catch(L.UnknownValue1)
			} else {
				next = post.Copy()
			}
			if frames[s] == nil {
				frames[s] = &next
				add(s)
			} else if joinFrames(frames[s], next) {
				add(s)
			}
		}
	})

	quanta := L.EffectSet{}
	for i, e := range it.effects {
		if frames[i] != nil {
			quanta = quanta.Union(e)
		}
	}
	res := L.Effects{Quanta: quanta, Returns: L.UnknownValue1}
	if b.Ret.IsRef() && it.returns != nil {
		res.Returns = *it.returns
	}
	return res
}

// Equation wraps the effects of b as the equation of its stable Pure key.
func Equation(b *ir.Body, g cfg.Graph, owned map[ir.Field]bool) L.EffectEquation {
	return L.EffectEquation{
		Key:     defs.MkKey(b.Method, defs.PureDir(), true),
		Effects: Analyze(b, g, owned),
	}
}
