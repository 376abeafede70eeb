package lattice

import (
	"sort"
	"strings"

	"github.com/cs-au-dk/contra/analysis/defs"
	i "github.com/cs-au-dk/contra/utils/indenter"
)

// EquationSizeLimit bounds the number of dependency keys one result may
// mention across all of its products. Results that would exceed it degrade to
// the lattice's Unknown value.
const EquationSizeLimit = 30

// Result is either Final or Pending.
type Result interface {
	isResult()
	Equal(Result) bool
	String() string
}

// Final is a fully resolved fact.
type Final struct {
	Value defs.Value
}

// Pending is the join of its products.
type Pending struct {
	Sum []Product
}

// Product contributes Value to the join of a Pending result once every key
// in Keys is resolved. Resolving a key k to v narrows Value to
// Meet(Value, v); a product whose value narrows to Bot contributes nothing.
type Product struct {
	Value defs.Value
	Keys  defs.KeySet
}

func (Final) isResult()   {}
func (Pending) isResult() {}

func (f Final) Equal(o Result) bool {
	g, ok := o.(Final)
	return ok && f.Value == g.Value
}

func (f Final) String() string {
	return colorize.Value(f.Value.String())
}

func (p Product) Equal(o Product) bool {
	return p.Value == o.Value && p.Keys.Equal(o.Keys)
}

func (p Product) String() string {
	return "(" + colorize.Value(p.Value.String()) + ", " + colorize.Key(p.Keys.String()) + ")"
}

// Equal compares the products as a set.
func (p Pending) Equal(o Result) bool {
	q, ok := o.(Pending)
	if !ok || len(p.Sum) != len(q.Sum) {
		return false
	}
	for _, a := range p.Sum {
		if !containsProduct(q.Sum, a) {
			return false
		}
	}
	return true
}

func (p Pending) String() string {
	strs := make([]string, 0, len(p.Sum))
	for _, prod := range p.Sum {
		strs = append(strs, prod.String())
	}
	sort.Strings(strs)
	if len(strs) <= 1 {
		return "Pending" + strings.Join(strs, "")
	}
	return i.Indenter().Start("Pending{").NestStringsSep(" ∨", strs...).End("}")
}

// Keys is the number of dependency occurrences across all products.
func (p Pending) Keys() (n int) {
	for _, prod := range p.Sum {
		n += prod.Keys.Len()
	}
	return
}

// Dependencies collects every key mentioned by a result.
func Dependencies(r Result) defs.KeySet {
	deps := defs.KeySet{}
	if p, ok := r.(Pending); ok {
		for _, prod := range p.Sum {
			deps = deps.Union(prod.Keys)
		}
	}
	return deps
}

func containsProduct(sum []Product, p Product) bool {
	for _, q := range sum {
		if q.Equal(p) {
			return true
		}
	}
	return false
}

// JoinResults computes r1 ⊔ r2:
//
//	Final(a) ⊔ Final(b)     = Final(a ⊔ b)
//	Final(v) ⊔ Pending(P)   = Pending(P ∪ {(v, ∅)})
//	Pending(P) ⊔ Pending(Q) = Pending(P ∪ Q)
//
// Final(Top) absorbs everything and Final(Bot) is the identity. Pending
// results exceeding EquationSizeLimit degrade to Final(Unknown).
func (l Lattice) JoinResults(r1, r2 Result) Result {
	switch r1 := r1.(type) {
	case Final:
		switch r2 := r2.(type) {
		case Final:
			return Final{l.Join(r1.Value, r2.Value)}
		case Pending:
			return l.joinFinal(r2, r1.Value)
		}
	case Pending:
		switch r2 := r2.(type) {
		case Final:
			return l.joinFinal(r1, r2.Value)
		case Pending:
			sum := make([]Product, 0, len(r1.Sum)+len(r2.Sum))
			sum = append(sum, r1.Sum...)
			for _, p := range r2.Sum {
				if !containsProduct(sum, p) {
					sum = append(sum, p)
				}
			}
			return l.capped(Pending{sum})
		}
	}
	panic("unreachable")
}

func (l Lattice) joinFinal(p Pending, v defs.Value) Result {
	switch v {
	case l.Top:
		return Final{l.Top}
	case l.Bot:
		return p
	}
	return l.Normalize(append(append([]Product(nil), p.Sum...), Product{Value: v}))
}

func (l Lattice) capped(p Pending) Result {
	if p.Keys() > EquationSizeLimit {
		return Final{l.Unknown}
	}
	return p
}

// Normalize turns a sum of products into the simplest equivalent result:
// products narrowed to Bot are dropped, products without keys are joined into
// one, and the result becomes Final once no product has keys left (or one
// keyless product already reaches Top).
func (l Lattice) Normalize(sum []Product) Result {
	var (
		keyless   = l.Bot
		hasKeyed  bool
		remaining = make([]Product, 0, len(sum))
	)
	for _, p := range sum {
		switch {
		case p.Value == l.Bot || p.Value == defs.Bot:
			continue
		case p.Keys.Empty():
			keyless = l.Join(keyless, p.Value)
		default:
			hasKeyed = true
			if !containsProduct(remaining, p) {
				remaining = append(remaining, p)
			}
		}
	}

	if keyless == l.Top || !hasKeyed {
		return Final{keyless}
	}
	if keyless != l.Bot {
		remaining = append(remaining, Product{Value: keyless})
	}
	return l.capped(Pending{remaining})
}
