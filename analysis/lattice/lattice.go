package lattice

import (
	"fmt"

	"github.com/cs-au-dk/contra/analysis/defs"
)

// Lattice is a view of the fact values used by one direction family.
//
// Every family orders its values between Bot and Top. Values that are neither
// Bot nor Top are pairwise incomparable. Unknown is the sound answer for a
// fact that could not be computed: it is what degraded engine runs, opaque
// callees and unbreakable dependency cycles resolve to.
type Lattice struct {
	Bot, Top, Unknown defs.Value
}

var (
	// Contracts orders {Bot, NotNull, Null, True, False, Top}. Used by Out and
	// InOut.
	Contracts = Lattice{defs.Bot, defs.Top, defs.Top}
	// NotNullParams is {NotNull < Top}: a parameter is NotNull when every
	// path dereferences it.
	NotNullParams = Lattice{defs.NotNull, defs.Top, defs.Top}
	// NullableParams is {Null < Top}: a parameter is Nullable when no path
	// dereferences it.
	NullableParams = Lattice{defs.Null, defs.Top, defs.Top}
	// NullableResults is {Bot < Null}: a result is Nullable when some path
	// may return null.
	NullableResults = Lattice{defs.Bot, defs.Null, defs.Bot}
)

// For returns the lattice over which facts in direction d are solved.
func For(d defs.Direction) Lattice {
	switch d.Kind {
	case defs.In:
		if d.Nullity == defs.NullableParam {
			return NullableParams
		}
		return NotNullParams
	case defs.NullableOut:
		return NullableResults
	case defs.Out, defs.InOut:
		return Contracts
	}
	panic(fmt.Errorf("no value lattice for direction %v", d))
}

func (l Lattice) Join(a, b defs.Value) defs.Value {
	switch {
	case a == b:
		return a
	case a == l.Bot:
		return b
	case b == l.Bot:
		return a
	}
	return l.Top
}

func (l Lattice) Meet(a, b defs.Value) defs.Value {
	switch {
	case a == b:
		return a
	case a == l.Top:
		return b
	case b == l.Top:
		return a
	}
	return l.Bot
}

func (l Lattice) Leq(a, b defs.Value) bool {
	return l.Join(a, b) == b
}

func (l Lattice) String() string {
	return colorize.Lattice(l.Bot.String()) + " < ... < " + colorize.Lattice(l.Top.String())
}
