package main

import (
	"context"
	"log"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/errgroup"

	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/hierarchy"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/known"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/purity"
	"github.com/cs-au-dk/contra/analysis/solver"
	"github.com/cs-au-dk/contra/utils"
)

// config holds what the pipeline reads from the command line.
type config struct {
	workers     int
	limits      absint.Limits
	closedWorld bool
	progress    bool
}

// pipeline is a wrapper around the analysis pipeline: per-method engines
// produce equations which the solvers resolve into facts.
type pipeline struct {
	prog *ir.Program
	config
	metrics *runMetrics
}

// equations is the output of the per-method phase.
type equations struct {
	nullity []L.Equation
	purity  []L.EffectEquation
}

// solution holds the resolved facts of a run.
type solution struct {
	facts   map[defs.Key]defs.Value
	effects map[defs.Key]L.EffectSet
}

// bodies lists the methods with code. The order of the program is kept so
// that equation listings are stable.
func (p pipeline) bodies() []*ir.Body {
	res := []*ir.Body{}
	for _, b := range p.prog.Bodies() {
		if b.HasCode() {
			res = append(res, b)
		}
	}
	return res
}

// equations runs the engines on every method in parallel and adds the
// equations derived from the class hierarchy.
func (p pipeline) equations(ctx context.Context) (equations, error) {
	defer utils.TimeTrack(time.Now(), "Equations")

	n := p.prog.Devirtualize()
	opts.OnVerbose(func() {
		log.Printf("Devirtualized %d call sites", n)
	})
	owned := p.prog.OwnedFields()

	bodies := p.bodies()
	nullity := make([][]L.Equation, len(bodies))
	effects := make([]L.EffectEquation, len(bodies))

	var bar *pb.ProgressBar
	if p.progress {
		bar = pb.StartNew(len(bodies))
		defer bar.Finish()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, b := range bodies {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			eqs, stats := absint.Analyze(gctx, b, p.limits)
			nullity[i] = eqs
			effects[i] = purity.Equation(b, cfg.Build(b), owned)
			p.metrics.observe(b.Method, stats)
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return equations{}, err
	}

	var res equations
	for _, eqs := range nullity {
		res.nullity = append(res.nullity, eqs...)
	}
	res.purity = append(effects, hierarchy.Volatility(p.prog)...)

	if p.closedWorld {
		eqs, effs := hierarchy.ClosedWorld(p.prog)
		log.Printf("Closed world: %d overridable methods", len(effs))
		res.nullity = append(res.nullity, eqs...)
		res.purity = append(res.purity, effs...)
	}

	return res, nil
}

// solve resolves the equations together with the known library facts.
func (p pipeline) solve(eqs equations) solution {
	defer utils.TimeTrack(time.Now(), "Solving")

	s, ps := solver.NewSolver(), solver.NewPuritySolver()
	tab := known.Builtin()
	for _, f := range tab.Facts {
		s.AddSolved(f.Key, f.Value)
	}
	for _, e := range tab.Effects {
		ps.AddSolved(e.Key, e.Effects)
	}

	s.Add(eqs.nullity...)
	ps.Add(eqs.purity...)

	sol := solution{facts: s.Solve(), effects: ps.Solve()}
	p.metrics.solved("nullity", s.Stats)
	p.metrics.solved("purity", ps.Stats)

	opts.OnVerbose(func() {
		log.Println("Nullity solver:", s.Stats)
		log.Println("Purity solver:", ps.Stats)
	})
	return sol
}

// run is the whole inference: equations, then solving.
func (p pipeline) run(ctx context.Context) (solution, error) {
	eqs, err := p.equations(ctx)
	if err != nil {
		return solution{}, err
	}
	return p.solve(eqs), nil
}
