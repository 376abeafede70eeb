package lower

import (
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
)

// typeName prints t with fully qualified package paths. Semicolons would end
// a descriptor early and are replaced.
func typeName(t types.Type) string {
	return strings.ReplaceAll(types.TypeString(t, nil), ";", ",")
}

// typeDesc maps a Go type to a descriptor. Nilable types become references,
// numbers keep their width and everything else (strings, structs, arrays) is
// an opaque value that is never nil.
func typeDesc(t types.Type) string {
	name := typeName(t)
	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case u.Kind() == types.UnsafePointer || u.Kind() == types.UntypedNil:
			return "L" + name + ";"
		case info&types.IsBoolean != 0:
			return "Z"
		case u.Kind() == types.Float32:
			return "F"
		case info&types.IsFloat != 0:
			return "D"
		case info&types.IsInteger != 0:
			switch u.Kind() {
			case types.Int, types.Int64, types.Uint, types.Uint64, types.Uintptr, types.UntypedInt:
				return "J"
			}
			return "I"
		}
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return "L" + name + ";"
	}
	return "Q" + name + ";"
}

// resultDesc is void for functions with zero or several results.
func resultDesc(results *types.Tuple) string {
	if results.Len() == 1 {
		return typeDesc(results.At(0).Type())
	}
	return "V"
}

func sigDesc(params []types.Type, results *types.Tuple) string {
	var sb strings.Builder
	sb.WriteString("(")
	for _, p := range params {
		sb.WriteString(typeDesc(p))
	}
	sb.WriteString(")")
	sb.WriteString(resultDesc(results))
	return sb.String()
}

func sortOf(t types.Type) ir.Sort {
	if tup, ok := t.(*types.Tuple); ok {
		if tup.Len() == 0 {
			return ir.VoidSort
		}
		// Tuples are opaque; components are projected with q2x.
		return ir.IntSort
	}
	typ, err := ir.ParseType(typeDesc(t))
	if err != nil {
		return ir.IntSort
	}
	return typ.Sort
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// MethodOf names a function in the key space. Methods are owned by their
// receiver's base type and take the receiver as parameter 0. Anonymous
// functions are owned by the owner of their enclosing function and take
// their free variables after the declared parameters.
func MethodOf(fn *ssa.Function) defs.Method {
	root := fn
	for root.Parent() != nil {
		root = root.Parent()
	}

	owner := "runtime"
	switch {
	case root.Signature.Recv() != nil:
		owner = typeName(deref(root.Signature.Recv().Type()))
	case root.Pkg != nil:
		owner = root.Pkg.Pkg.Path()
	case root.Object() != nil && root.Object().Pkg() != nil:
		owner = root.Object().Pkg().Path()
	}

	params := make([]types.Type, 0, len(fn.Params)+len(fn.FreeVars))
	if len(fn.Params) == 0 && fn.Signature.Params().Len() > 0 {
		// Functions without bodies have no ssa.Parameters.
		if recv := fn.Signature.Recv(); recv != nil {
			params = append(params, recv.Type())
		}
		for i := 0; i < fn.Signature.Params().Len(); i++ {
			params = append(params, fn.Signature.Params().At(i).Type())
		}
	} else {
		for _, p := range fn.Params {
			params = append(params, p.Type())
		}
	}
	for _, fv := range fn.FreeVars {
		params = append(params, fv.Type())
	}

	return defs.Method{Owner: owner, Name: fn.Name(), Desc: sigDesc(params, fn.Signature.Results())}
}

// interfaceMethod names an abstract method invoked through an interface.
// The receiver is not part of the descriptor.
func interfaceMethod(itf types.Type, m *types.Func) defs.Method {
	sig := m.Type().(*types.Signature)
	params := make([]types.Type, 0, sig.Params().Len())
	for i := 0; i < sig.Params().Len(); i++ {
		params = append(params, sig.Params().At(i).Type())
	}
	return defs.Method{Owner: typeName(itf), Name: m.Name(), Desc: sigDesc(params, sig.Results())}
}

func prefix(s ir.Sort) string {
	switch s {
	case ir.LongSort:
		return "l"
	case ir.FloatSort:
		return "f"
	case ir.DoubleSort:
		return "d"
	case ir.RefSort:
		return "a"
	}
	return "i"
}
