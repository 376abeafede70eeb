package absint

import (
	"fmt"

	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/utils"
)

// Kind tags an identity/nullity abstract value.
type Kind uint8

const (
	// GenericValue carries no information besides its sort.
	GenericValue Kind = iota
	// ParamValue is the parameter under hypothesis.
	ParamValue
	// NthParamValue is parameter N in the straight-line engine, which
	// tracks all parameters at once.
	NthParamValue
	ThisValue
	NullValue
	NotNullValue
	TrueValue
	FalseValue
	// InstanceOfValue is the outcome of an instanceof check on the
	// parameter (parameter N in the straight-line engine).
	InstanceOfValue
	// CallResultValue is the result of a call, described by the keys of
	// the callee facts it depends on.
	CallResultValue
)

var kindNames = [...]string{
	GenericValue:    "_",
	ParamValue:      "Param",
	NthParamValue:   "NthParam",
	ThisValue:       "This",
	NullValue:       "Null",
	NotNullValue:    "NotNull",
	TrueValue:       "True",
	FalseValue:      "False",
	InstanceOfValue: "InstanceOf",
	CallResultValue: "CallResult",
}

// Value is an identity/nullity abstract value.
type Value struct {
	Kind Kind
	// Sort is VoidSort for uninitialized local slots.
	Sort ir.Sort
	// N is the parameter index of NthParamValue and InstanceOfValue in the
	// straight-line engine.
	N    int
	Keys defs.KeySet
	// Site describes the call producing a CallResultValue in the
	// straight-line engine, where keys depend on the direction.
	Site *callSite
}

// callSite records which parameters a call receives in which argument
// position.
type callSite struct {
	call ir.Call
	ret  ir.Type
	// args maps argument positions (receiver excluded) to parameter indices,
	// -1 for arguments that are not parameters.
	args []int
}

func generic(sort ir.Sort) Value {
	return Value{Kind: GenericValue, Sort: sort}
}

func tagged(kind Kind, sort ir.Sort) Value {
	return Value{Kind: kind, Sort: sort}
}

func (v Value) Size() int {
	if v.Sort == ir.VoidSort {
		return 1
	}
	return v.Sort.Size()
}

// Widen forgets everything but the identity of the parameter.
func (v Value) Widen() Value {
	if v.Kind == ParamValue {
		return v
	}
	return generic(v.Sort)
}

// Equiv compares values by shape: kind, sort, parameter index and dependency
// keys. Call results from different sites with the same keys are
// equivalent.
func (v Value) Equiv(o Value) bool {
	return v.Kind == o.Kind && v.Sort == o.Sort && v.N == o.N &&
		v.Keys.Equal(o.Keys) && v.Site == o.Site
}

func (v Value) Hash() uint32 {
	return utils.HashCombine(uint32(v.Kind), uint32(v.Sort), uint32(v.N), v.Keys.Hash())
}

func (v Value) String() string {
	switch v.Kind {
	case GenericValue:
		if v.Sort == ir.VoidSort {
			return "."
		}
		return "_" + v.Sort.String()
	case NthParamValue, InstanceOfValue:
		return fmt.Sprintf("%s(%d)", kindNames[v.Kind], v.N)
	case CallResultValue:
		if v.Site != nil {
			return "CallResult(" + v.Site.call.Method.String() + ")"
		}
		return "CallResult" + v.Keys.String()
	}
	return kindNames[v.Kind]
}
