package absint

import (
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/frame"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/origins"
)

// combined analyzes a method without branches in one pass over its only
// path, tracking every parameter at once. It computes the same facts as the
// per-direction engine.
type combined struct {
	body    *ir.Body
	origins origins.Origins
	current int

	derefs   []bool
	escapes  []bool
	notNull  []defs.KeySet
	nullable [][]defs.Key

	// outcome of the path
	returned, threw bool
	ret             Value
}

func newCombined(body *ir.Body, orig origins.Origins) *combined {
	n := len(body.Params)
	return &combined{
		body:     body,
		origins:  orig,
		derefs:   make([]bool, n),
		escapes:  make([]bool, n),
		notNull:  make([]defs.KeySet, n),
		nullable: make([][]defs.Key, n),
	}
}

func (c *combined) deref(v Value) {
	if v.Kind == NthParamValue {
		c.derefs[v.N] = true
	}
}

func (c *combined) escape(v Value) {
	if v.Kind == NthParamValue {
		c.escapes[v.N] = true
	}
}

func (c *combined) Generic(sort ir.Sort) Value {
	return generic(sort)
}

func (c *combined) New(in ir.Instruction) Value {
	return constValue(in, c.origins.ResultRelevant(c.current))
}

func (c *combined) Copy(in ir.Instruction, v Value) Value {
	return v
}

func (c *combined) Unary(in ir.Instruction, v Value) Value {
	switch in.Op {
	case ir.GetField:
		c.deref(v)
		return generic(in.Field.Type().Sort)
	case ir.ArrayLength, ir.MonitorEnter, ir.MonitorExit:
		c.deref(v)
	case ir.PutStatic:
		c.escape(v)
	case ir.CheckCast:
		return v
	case ir.InstanceOf:
		if v.Kind == NthParamValue {
			return Value{Kind: InstanceOfValue, Sort: ir.IntSort, N: v.N}
		}
	case ir.NewArray:
		if c.origins.ResultRelevant(c.current) {
			return tagged(NotNullValue, ir.RefSort)
		}
		return generic(ir.RefSort)
	case ir.Unary:
		return generic(in.To)
	}
	return generic(ir.IntSort)
}

func (c *combined) Binary(in ir.Instruction, v1, v2 Value) Value {
	switch in.Op {
	case ir.ArrayLoad:
		c.deref(v1)
	case ir.PutField:
		c.deref(v1)
		c.escape(v2)
	case ir.Compare:
		return generic(ir.IntSort)
	}
	return generic(in.Sort)
}

func (c *combined) Ternary(in ir.Instruction, v1, v2, v3 Value) Value {
	c.deref(v1)
	c.escape(v3)
	return generic(ir.VoidSort)
}

func (c *combined) Nary(in ir.Instruction, args []Value) Value {
	_, ret := in.Call.Signature()
	if in.Op == ir.InvokeDynamic {
		return generic(ret.Sort)
	}

	callee, stable := in.Call.Method, in.Call.Stable()
	params := args
	if !in.Call.Static() {
		c.deref(args[0])
		params = args[1:]
	}

	site := &callSite{call: in.Call, ret: ret, args: make([]int, len(params))}
	for j, a := range params {
		site.args[j] = -1
		if a.Kind != NthParamValue {
			continue
		}
		site.args[j] = a.N
		c.notNull[a.N] = c.notNull[a.N].Add(defs.MkKey(callee, defs.InDir(j, defs.NotNullParam), stable))
		c.nullable[a.N] = append(c.nullable[a.N], defs.MkKey(callee, defs.InDir(j, defs.NullableParam), stable))
	}
	if ret.IsRef() || ret.IsBoolean() {
		return Value{Kind: CallResultValue, Sort: ret.Sort, Site: site}
	}
	return generic(ret.Sort)
}

// run follows the single path from the entry until it returns, throws or
// revisits an instruction.
func (c *combined) run() (states int) {
	f := frame.Entry[Value](c.body, c, func(n int, t ir.Type) Value {
		if n < 0 {
			return tagged(ThisValue, ir.RefSort)
		}
		if t.IsRef() || t.IsBoolean() {
			return Value{Kind: NthParamValue, Sort: t.Sort, N: n}
		}
		return generic(t.Sort)
	})

	g := len(c.body.Insns)
	visited := make([]bool, g)
	for i := 0; i < g && !visited[i]; states++ {
		visited[i] = true
		c.current = i
		in := c.body.Insns[i]
		switch in.Op {
		case ir.Return:
			c.returned = true
			if in.Sort != ir.VoidSort {
				c.ret = f.Peek(0)
			}
			return
		case ir.Throw:
			c.threw = true
			return
		}
		f.Execute(in, c)

		switch in.Op {
		case ir.Goto:
			i = in.Target
		case ir.If, ir.IfCmp:
			// Both edges lead to the same instruction.
			i = in.Target
		case ir.Switch:
			i = in.Targets[0]
		default:
			i++
		}
	}
	return
}

// result extracts the fact in direction d from the explored path.
func (c *combined) result(d defs.Direction) lattice.Result {
	switch d.Kind {
	case defs.In:
		n := d.Param
		if d.Nullity == defs.NotNullParam {
			switch {
			case c.derefs[n] || !c.returned && !c.threw:
				return lattice.Final{Value: defs.NotNull}
			case c.threw || c.notNull[n].Empty():
				return lattice.Final{Value: defs.Top}
			}
			return lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: c.notNull[n]}}}
		}
		if c.derefs[n] || c.escapes[n] {
			return lattice.Final{Value: defs.Top}
		}
		var res lattice.Result = lattice.Final{Value: defs.Null}
		for _, k := range c.nullable[n] {
			res = lattice.NullableParams.JoinResults(res,
				lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: defs.NewKeySet(k)}}})
		}
		return res

	case defs.NullableOut:
		if !c.returned {
			return lattice.Final{Value: defs.Bot}
		}
		switch c.ret.Kind {
		case NullValue:
			return lattice.Final{Value: defs.Null}
		case CallResultValue:
			k := defs.MkKey(c.ret.Site.call.Method, defs.NullableOutDir(), c.ret.Site.call.Stable())
			return lattice.Pending{Sum: []lattice.Product{{Value: defs.Null, Keys: defs.NewKeySet(k)}}}
		}
		return lattice.Final{Value: defs.Bot}
	}

	// Out and InOut
	inout := d.Kind == defs.InOut
	if !c.returned || inout && d.Value == defs.Null && c.derefs[d.Param] {
		return lattice.Final{Value: defs.Bot}
	}
	v := c.ret
	switch v.Kind {
	case NthParamValue:
		if inout && v.N == d.Param {
			return lattice.Final{Value: d.Value}
		}
		return lattice.Final{Value: defs.Top}
	case InstanceOfValue:
		if inout && v.N == d.Param && d.Value == defs.Null {
			return lattice.Final{Value: defs.False}
		}
		return lattice.Final{Value: defs.Top}
	case CallResultValue:
		site := v.Site
		keys := defs.NewKeySet(defs.MkKey(site.call.Method, defs.OutDir(), site.call.Stable()))
		if inout {
			for j, n := range site.args {
				if n == d.Param {
					keys = keys.Add(defs.MkKey(site.call.Method, defs.InOutDir(j, d.Value), site.call.Stable()))
				}
			}
		}
		return lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: keys}}}
	case NullValue:
		return lattice.Final{Value: defs.Null}
	case NotNullValue, ThisValue:
		return lattice.Final{Value: defs.NotNull}
	case TrueValue:
		return lattice.Final{Value: defs.True}
	case FalseValue:
		return lattice.Final{Value: defs.False}
	}
	return lattice.Final{Value: defs.Top}
}
