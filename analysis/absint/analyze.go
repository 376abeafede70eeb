package absint

import (
	"context"

	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/origins"
)

// Directions lists the nullity and contract directions inferred for a
// method, in a fixed order.
func Directions(b *ir.Body) []defs.Direction {
	dirs := []defs.Direction{}
	contracts := b.Ret.IsRef() || b.Ret.IsBoolean()
	for n, p := range b.Params {
		if n >= defs.MaxParams {
			break
		}
		switch {
		case p.IsRef():
			dirs = append(dirs, defs.InDir(n, defs.NotNullParam), defs.InDir(n, defs.NullableParam))
			if contracts {
				dirs = append(dirs, defs.InOutDir(n, defs.Null), defs.InOutDir(n, defs.NotNull))
			}
		case p.IsBoolean() && contracts:
			dirs = append(dirs, defs.InOutDir(n, defs.True), defs.InOutDir(n, defs.False))
		}
	}
	switch {
	case b.Ret.IsRef():
		dirs = append(dirs, defs.OutDir(), defs.NullableOutDir())
	case b.Ret.IsBoolean():
		dirs = append(dirs, defs.OutDir())
	}
	return dirs
}

// Run analyzes one direction of a method with the worklist engine.
func Run(ctx context.Context, b *ir.Body, g cfg.Graph, orig origins.Origins, d defs.Direction, limits Limits) (lattice.Result, Stats) {
	e := newEngine(ctx, b, g, orig, d, limits)
	res := e.run()
	return res, e.stats
}

// RunCombined analyzes the given directions of a method without branches in
// a single pass.
func RunCombined(b *ir.Body, orig origins.Origins, dirs []defs.Direction) ([]lattice.Result, Stats) {
	c := newCombined(b, orig)
	states := c.run()
	res := make([]lattice.Result, len(dirs))
	for i, d := range dirs {
		res[i] = c.result(d)
	}
	return res, Stats{States: states, Combined: true}
}

// Analyze produces the stable nullity and contract equations of a method.
// Abstract and native methods have none.
func Analyze(ctx context.Context, b *ir.Body, limits Limits) ([]lattice.Equation, []Stats) {
	if !b.HasCode() {
		return nil, nil
	}
	g := cfg.Build(b)
	orig := origins.Analyze(b, g)

	var (
		eqs   []lattice.Equation
		stats []Stats
		rest  []defs.Direction
	)
	emit := func(d defs.Direction, r lattice.Result) {
		eqs = append(eqs, lattice.Equation{Key: defs.MkKey(b.Method, d, true), Result: r})
	}

	for _, d := range Directions(b) {
		if r, ok := notLeaking(b, orig, d); ok {
			emit(d, r)
			continue
		}
		rest = append(rest, d)
	}
	if len(rest) == 0 {
		return eqs, stats
	}

	if !cfg.HasBranches(g) {
		res, st := RunCombined(b, orig, rest)
		for i, d := range rest {
			emit(d, res[i])
		}
		return eqs, append(stats, st)
	}

	for _, d := range rest {
		r, st := Run(ctx, b, g, orig, d, limits)
		emit(d, r)
		stats = append(stats, st)
	}
	return eqs, stats
}

// notLeaking answers the parameter directions of a parameter that is never
// used: null is accepted, and the result does not depend on it.
func notLeaking(b *ir.Body, orig origins.Origins, d defs.Direction) (lattice.Result, bool) {
	if !d.HasParam() || orig.Leaks(d.Param) {
		return nil, false
	}
	switch d.Kind {
	case defs.In:
		if d.Nullity == defs.NotNullParam {
			return lattice.Final{Value: defs.Top}, true
		}
		return lattice.Final{Value: defs.Null}, true
	}
	out := defs.MkKey(b.Method, defs.OutDir(), true)
	return lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: defs.NewKeySet(out)}}}, true
}
