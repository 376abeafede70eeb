package absint

import (
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/origins"
)

// Analysis selects which fact an engine run infers.
type Analysis uint8

const (
	// NotNullIn infers In(i, NotNull): every path dereferences parameter i
	// when it is null.
	NotNullIn Analysis = iota
	// NullableIn infers In(i, Nullable): no path dereferences parameter i.
	NullableIn
	// Contract infers Out and InOut(i, v).
	Contract
	// NullableResult infers NullableOut.
	NullableResult
)

func (a Analysis) String() string {
	switch a {
	case NotNullIn:
		return "NotNullIn"
	case NullableIn:
		return "NullableIn"
	case Contract:
		return "Contract"
	}
	return "NullableResult"
}

// AnalysisFor maps a direction to the analysis inferring it.
func AnalysisFor(d defs.Direction) Analysis {
	switch d.Kind {
	case defs.In:
		if d.Nullity == defs.NullableParam {
			return NullableIn
		}
		return NotNullIn
	case defs.NullableOut:
		return NullableResult
	}
	return Contract
}

// interpreter is the transfer function of the identity/nullity family for
// one engine run. The fields below step record what the last executed
// instruction did to the parameter under hypothesis.
type interpreter struct {
	body     *ir.Body
	origins  origins.Origins
	analysis Analysis
	// param is the parameter under hypothesis, -1 for Out and NullableOut.
	param int
	// hyp is the hypothesized value of the parameter.
	hyp defs.Value
	// current is the index of the executing instruction.
	current int

	step struct {
		// dereferenced is raised when the parameter, hypothesized to be
		// null, is used in a way that throws on null.
		dereferenced bool
		// escaped is raised when the parameter is stored to the heap.
		escaped bool
		// inKeys are the In keys of callees receiving the parameter.
		inKeys []defs.Key
	}
}

func (it *interpreter) reset(i int) {
	it.current = i
	it.step.dereferenced = false
	it.step.escaped = false
	it.step.inKeys = it.step.inKeys[:0]
}

func (it *interpreter) relevant() bool {
	return it.origins.ResultRelevant(it.current)
}

func (it *interpreter) deref(v Value) {
	if v.Kind == ParamValue && it.hyp == defs.Null {
		it.step.dereferenced = true
	}
}

func (it *interpreter) escape(v Value) {
	if v.Kind == ParamValue {
		it.step.escaped = true
	}
}

func (it *interpreter) Generic(sort ir.Sort) Value {
	return generic(sort)
}

func (it *interpreter) New(in ir.Instruction) Value {
	return constValue(in, it.relevant())
}

// constValue tags constants. Null is always tagged since reference
// comparisons against it are specialized; the other constants only matter
// when they may be returned.
func constValue(in ir.Instruction, relevant bool) Value {
	switch in.Op {
	case ir.Const:
		switch {
		case in.Const == ir.ConstNull:
			return tagged(NullValue, ir.RefSort)
		case !relevant:
		case in.Const == ir.ConstString || in.Const == ir.ConstClass:
			return tagged(NotNullValue, ir.RefSort)
		case in.Const == ir.ConstInt && in.Int == 0:
			return tagged(FalseValue, ir.IntSort)
		case in.Const == ir.ConstInt && in.Int == 1:
			return tagged(TrueValue, ir.IntSort)
		}
		return generic(in.Sort)
	case ir.New:
		if relevant {
			return tagged(NotNullValue, ir.RefSort)
		}
		return generic(ir.RefSort)
	}
	return generic(in.Field.Type().Sort)
}

func (it *interpreter) Copy(in ir.Instruction, v Value) Value {
	return v
}

func (it *interpreter) Unary(in ir.Instruction, v Value) Value {
	switch in.Op {
	case ir.GetField:
		it.deref(v)
		return generic(in.Field.Type().Sort)
	case ir.ArrayLength:
		it.deref(v)
	case ir.MonitorEnter, ir.MonitorExit:
		it.deref(v)
	case ir.PutStatic:
		it.escape(v)
	case ir.CheckCast:
		return v
	case ir.InstanceOf:
		if v.Kind == ParamValue {
			return tagged(InstanceOfValue, ir.IntSort)
		}
	case ir.NewArray:
		if it.relevant() {
			return tagged(NotNullValue, ir.RefSort)
		}
		return generic(ir.RefSort)
	case ir.Unary:
		return generic(in.To)
	}
	return generic(ir.IntSort)
}

func (it *interpreter) Binary(in ir.Instruction, v1, v2 Value) Value {
	switch in.Op {
	case ir.ArrayLoad:
		it.deref(v1)
	case ir.PutField:
		it.deref(v1)
		it.escape(v2)
	case ir.Compare:
		return generic(ir.IntSort)
	}
	return generic(in.Sort)
}

func (it *interpreter) Ternary(in ir.Instruction, v1, v2, v3 Value) Value {
	it.deref(v1)
	it.escape(v3)
	return generic(ir.VoidSort)
}

func (it *interpreter) Nary(in ir.Instruction, args []Value) Value {
	_, ret := in.Call.Signature()
	if in.Op == ir.InvokeDynamic {
		return generic(ret.Sort)
	}

	callee, stable := in.Call.Method, in.Call.Stable()
	params := args
	if !in.Call.Static() {
		it.deref(args[0])
		params = args[1:]
	}

	keys := defs.KeySet{}
	for j, a := range params {
		if a.Kind != ParamValue {
			continue
		}
		switch it.analysis {
		case NotNullIn:
			it.step.inKeys = append(it.step.inKeys, defs.MkKey(callee, defs.InDir(j, defs.NotNullParam), stable))
		case NullableIn:
			it.step.inKeys = append(it.step.inKeys, defs.MkKey(callee, defs.InDir(j, defs.NullableParam), stable))
		case Contract:
			keys = keys.Add(defs.MkKey(callee, defs.InOutDir(j, it.hyp), stable))
		}
	}

	switch {
	case it.analysis == Contract && (ret.IsRef() || ret.IsBoolean()) &&
		(it.relevant() || ret.IsBoolean()):
		keys = keys.Add(defs.MkKey(callee, defs.OutDir(), stable))
		return Value{Kind: CallResultValue, Sort: ret.Sort, Keys: keys}
	case it.analysis == NullableResult && ret.IsRef() && it.relevant():
		keys = keys.Add(defs.MkKey(callee, defs.NullableOutDir(), stable))
		return Value{Kind: CallResultValue, Sort: ret.Sort, Keys: keys}
	}
	return generic(ret.Sort)
}

// returnContribution is what returning v adds to the result of a Contract
// or NullableResult run.
func (it *interpreter) returnContribution(v Value, assumed *assumption) lattice.Result {
	if it.analysis == NullableResult {
		switch v.Kind {
		case NullValue:
			return lattice.Final{Value: defs.Null}
		case CallResultValue:
			return lattice.Pending{Sum: []lattice.Product{{Value: defs.Null, Keys: v.Keys}}}
		}
		return lattice.Final{Value: defs.Bot}
	}

	var res defs.Value
	switch v.Kind {
	case ParamValue:
		res = it.hyp
	case NullValue:
		res = defs.Null
	case NotNullValue, ThisValue:
		res = defs.NotNull
	case TrueValue:
		res = defs.True
	case FalseValue:
		res = defs.False
	case InstanceOfValue:
		if it.hyp == defs.Null {
			res = defs.False
		} else {
			res = defs.Top
		}
	case CallResultValue:
		return lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: v.Keys}}}
	default:
		res = defs.Top
	}
	if assumed != nil && res.IsBoolean() {
		return assumed.product(res)
	}
	return lattice.Final{Value: res}
}
