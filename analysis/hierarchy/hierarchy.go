// Package hierarchy derives the equations that follow from the shape of the
// program rather than from method bodies: virtual dispatch in a closed world
// and the volatility of fields.
package hierarchy

import (
	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	L "github.com/cs-au-dk/contra/analysis/lattice"
)

// implementations lists the bodies a virtual call to b may dispatch to.
func implementations(p *ir.Program, b *ir.Body) []*ir.Body {
	impls := []*ir.Body{}
	if b.HasCode() {
		impls = append(impls, b)
	}
	for _, o := range p.Overriders(b.Method) {
		if o.HasCode() {
			impls = append(impls, o)
		}
	}
	return impls
}

// ClosedWorld emits, for every overridable method, the unstable equations
// joining the stable facts of all its implementations in the program. A
// method without implementations gets no equation and stays unknown.
func ClosedWorld(p *ir.Program) ([]L.Equation, []L.EffectEquation) {
	var (
		eqs  []L.Equation
		effs []L.EffectEquation
	)
	for _, b := range p.Bodies() {
		if !b.Overridable() {
			continue
		}
		impls := implementations(p, b)
		if len(impls) == 0 {
			continue
		}

		for _, d := range absint.Directions(b) {
			top := L.For(d).Top
			sum := make([]L.Product, 0, len(impls))
			for _, impl := range impls {
				k := defs.MkKey(impl.Method, d, true)
				sum = append(sum, L.Product{Value: top, Keys: defs.NewKeySet(k)})
			}
			eqs = append(eqs, L.Equation{
				Key:    defs.MkKey(b.Method, d, false),
				Result: L.Pending{Sum: sum},
			})
		}

		args := identity(b)
		e := L.Effects{Quanta: L.NewEffectSet(), Returns: L.UnknownValue1}
		for i, impl := range impls {
			k := defs.MkKey(impl.Method, defs.PureDir(), true)
			e.Quanta = e.Quanta.Add(L.CallEffect(k, args, false))
			if !b.Ret.IsRef() {
				continue
			}
			if i == 0 {
				e.Returns = L.ReturnValue(k)
			} else {
				e.Returns = L.JoinData(e.Returns, L.ReturnValue(k))
			}
		}
		effs = append(effs, L.EffectEquation{Key: defs.MkKey(b.Method, defs.PureDir(), false), Effects: e})
	}
	return eqs, effs
}

// identity passes the receiver and the parameters of b through unchanged.
func identity(b *ir.Body) []L.DataValue {
	args := []L.DataValue{L.ThisValue}
	for i, t := range b.Params {
		switch {
		case t.IsRef():
			args = append(args, L.ParamValue(i))
		case t.Sort.Size() == 2:
			args = append(args, L.UnknownValue2)
		default:
			args = append(args, L.UnknownValue1)
		}
	}
	return args
}

// Volatility emits the Volatile equation of every declared field: reading a
// volatile field is a side effect, reading any other field is not.
func Volatility(p *ir.Program) []L.EffectEquation {
	effs := []L.EffectEquation{}
	for _, c := range p.Classes {
		for _, f := range c.Fields {
			q := L.NewEffectSet()
			if f.Access.Has(ir.AccVolatile) {
				q = L.TopEffect()
			}
			effs = append(effs, L.EffectEquation{
				Key:     defs.MkKey(c.FieldRef(f).Method(), defs.VolatileDir(), true),
				Effects: L.Effects{Quanta: q, Returns: L.UnknownValue1},
			})
		}
	}
	return effs
}
