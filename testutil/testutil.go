package testutil

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/hierarchy"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/known"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/lower"
	"github.com/cs-au-dk/contra/analysis/purity"
	"github.com/cs-au-dk/contra/analysis/solver"
	"github.com/cs-au-dk/contra/pkgutil"
)

// LoadResult contains a lowered or assembled program together with the
// solved facts about it.
type LoadResult struct {
	// MainPkg is set for programs lowered from Go source.
	MainPkg *packages.Package
	// SSA is the SSA program the methods were lowered from.
	SSA *ssa.Program
	// Funcs maps lowered methods back to their SSA functions.
	Funcs map[defs.Method]*ssa.Function

	Prog    *ir.Program
	Facts   map[defs.Key]defs.Value
	Effects map[defs.Key]L.EffectSet

	SolverStats, PurityStats solver.Stats
}

// Options configure Solve.
type Options struct {
	ClosedWorld bool
	Limits      absint.Limits
}

// Fact is the solved value of the stable key of m in direction d, or Bot if
// nothing was solved.
func (res LoadResult) Fact(m defs.Method, d defs.Direction) defs.Value {
	return res.Facts[defs.MkKey(m, d, true)]
}

// Purity is the solved effect set of m.
func (res LoadResult) Purity(m defs.Method) (L.EffectSet, bool) {
	e, ok := res.Effects[defs.MkKey(m, defs.PureDir(), true)]
	return e, ok
}

// Method finds a method of the program by name. The name may be qualified
// with its owner ("Owner.name").
func (res LoadResult) Method(t *testing.T, name string) defs.Method {
	t.Helper()
	var found []defs.Method
	for _, b := range res.Prog.Bodies() {
		m := b.Method
		if m.Name == name || m.Owner+"."+m.Name == name {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		t.Fatalf("no method named %s", name)
	case 1:
	default:
		t.Fatalf("method name %s is ambiguous: %v", name, found)
	}
	return found[0]
}

// Solve runs the engines on every method of prog and solves the resulting
// equations together with the known library facts.
func Solve(prog *ir.Program, o Options) (res LoadResult) {
	res.Prog = prog

	s, ps := solver.NewSolver(), solver.NewPuritySolver()
	tab := known.Builtin()
	for _, f := range tab.Facts {
		s.AddSolved(f.Key, f.Value)
	}
	for _, e := range tab.Effects {
		ps.AddSolved(e.Key, e.Effects)
	}

	prog.Devirtualize()
	ps.Add(hierarchy.Volatility(prog)...)
	if o.ClosedWorld {
		eqs, effs := hierarchy.ClosedWorld(prog)
		s.Add(eqs...)
		ps.Add(effs...)
	}

	owned := prog.OwnedFields()
	for _, b := range prog.Bodies() {
		if !b.HasCode() {
			continue
		}
		eqs, _ := absint.Analyze(context.Background(), b, o.Limits)
		s.Add(eqs...)
		ps.Add(purity.Equation(b, cfg.Build(b), owned))
	}

	res.Facts, res.Effects = s.Solve(), ps.Solve()
	res.SolverStats, res.PurityStats = s.Stats, ps.Stats
	return
}

// LoadYAML assembles a YAML program description and solves it.
func LoadYAML(t *testing.T, text string, o Options) LoadResult {
	t.Helper()
	prog, err := ir.LoadProgram(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return Solve(prog, o)
}

// LoadSource lowers a single file Go program and solves it.
func LoadSource(t *testing.T, content string) LoadResult {
	t.Helper()
	pkgs, err := pkgutil.LoadPackagesFromSource(content)
	if err != nil {
		t.Fatal(err)
	}
	sprog, spkgs := pkgutil.BuildSSA(pkgs)
	funcs := pkgutil.Functions(spkgs)

	prog, errs := lower.Program(funcs)
	for _, err := range errs {
		t.Log("Skipped:", err)
	}
	if prog == nil {
		t.Fatal("lowering produced no program")
	}

	res := Solve(prog, Options{})
	res.MainPkg, res.SSA = pkgs[0], sprog
	res.Funcs = make(map[defs.Method]*ssa.Function, len(funcs))
	for _, fn := range funcs {
		res.Funcs[lower.MethodOf(fn)] = fn
	}
	return res
}

// Body assembles a single method. The method is owned by class "T".
func Body(t *testing.T, name, desc, code string, access ...string) *ir.Body {
	t.Helper()
	acc, err := ir.ParseAccess(access...)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ir.NewBody(defs.Method{Owner: "T", Name: name, Desc: desc}, acc)
	if err != nil {
		t.Fatal(err)
	}
	if err := ir.Assemble(b, code); err != nil {
		t.Fatal(err)
	}
	return b
}
