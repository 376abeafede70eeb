package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
)

func loadTestProgram(t *testing.T, name string) *ir.Program {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()

	prog, err := ir.LoadProgram(f)
	require.NoError(t, err)
	return prog
}

func testPipeline(prog *ir.Program) pipeline {
	return pipeline{
		prog: prog,
		config: config{
			workers: 2,
			limits:  absint.DefaultLimits,
		},
		metrics: newRunMetrics(),
	}
}

func TestReport(t *testing.T) {
	prog := loadTestProgram(t, "util.yaml")
	pl := testPipeline(prog)

	sol, err := pl.run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	report{w: &buf}.print(prog, sol)
	goldie.New(t).Assert(t, "report", buf.Bytes())
}

func TestReportIsDeterministic(t *testing.T) {
	render := func() string {
		prog := loadTestProgram(t, "util.yaml")
		sol, err := testPipeline(prog).run(context.Background())
		require.NoError(t, err)

		var buf bytes.Buffer
		report{w: &buf}.print(prog, sol)
		return buf.String()
	}

	first := render()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, render())
	}
}

func TestEquationsListing(t *testing.T) {
	prog := loadTestProgram(t, "util.yaml")
	eqs, err := testPipeline(prog).equations(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	printEquations(&buf, eqs)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	// One line per inferred direction and one purity equation per method,
	// plus the volatility of Util.f.
	assert.Len(t, lines, 10+4+1)
	assert.Len(t, eqs.nullity, 10)
	assert.Len(t, eqs.purity, 5)
}

func TestEquationsCancelled(t *testing.T) {
	prog := loadTestProgram(t, "util.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testPipeline(prog).equations(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics(t *testing.T) {
	prog := loadTestProgram(t, "util.yaml")
	pl := testPipeline(prog)
	_, err := pl.run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	pl.metrics.write(&buf)
	out := buf.String()

	// deref, store and self have no branches; orNull needs one run for each
	// of its four directions.
	assert.Contains(t, out, "contra_engine_runs_total 7")
	assert.Contains(t, out, "contra_engine_combined_runs_total 3")
	assert.Contains(t, out, `contra_solver_equations_total{solver="nullity"} 10`)
	assert.NotContains(t, out, "contra_engine_degradations_total")
}

func TestDependencyGraph(t *testing.T) {
	m := func(name string) defs.Method {
		return defs.Method{Owner: "T", Name: name, Desc: "()Ljava/lang/Object;"}
	}
	out := func(name string) defs.Key {
		return defs.MkKey(m(name), defs.OutDir(), true)
	}

	prog := loadTestProgram(t, "cycle.yaml")
	eqs, err := testPipeline(prog).equations(context.Background())
	require.NoError(t, err)

	deps := dependencies(eqs)
	assert.ElementsMatch(t, []defs.Key{out("b")}, deps[out("a")])
	assert.ElementsMatch(t, []defs.Key{out("a")}, deps[out("b")])

	dg := dependencyGraph(eqs)
	// a and b depend on each other for Out, NullableOut and purity.
	require.Len(t, dg.Clusters, 3)
	for _, c := range dg.Clusters {
		assert.Len(t, c.Nodes, 2)
	}

	var buf bytes.Buffer
	require.NoError(t, dg.WriteDot(&buf))
	assert.Contains(t, buf.String(), `rankdir="LR"`)
	assert.Contains(t, buf.String(), "cluster_")
}

func TestScenarios(t *testing.T) {
	prog := loadTestProgram(t, "scenarios.yaml")
	sol, err := testPipeline(prog).run(context.Background())
	require.NoError(t, err)

	method := func(name, desc string) defs.Method {
		return defs.Method{Owner: "S", Name: name, Desc: desc}
	}
	f := method("f", "(Ljava/lang/Object;)V")
	g := method("g", "(Ljava/lang/Object;)Ljava/lang/Object;")
	h := method("h", "()Ljava/lang/Object;")
	k := method("k", "(Ljava/lang/Object;)Ljava/lang/Object;")
	each := method("each", "(Ljava/lang/Object;I)V")
	guarded := method("guarded", "(Ljava/lang/Object;I)V")
	strict := method("strict", "(Ljava/lang/Object;I)V")
	r := method("r", "()V")

	for _, test := range []struct {
		m    defs.Method
		dir  defs.Direction
		want defs.Value
	}{
		// Throws when the argument is null.
		{f, defs.InDir(0, defs.NotNullParam), defs.NotNull},
		{f, defs.InDir(0, defs.NullableParam), defs.Top},
		{g, defs.InOutDir(0, defs.Null), defs.Null},
		{g, defs.InOutDir(0, defs.NotNull), defs.NotNull},
		{h, defs.OutDir(), defs.Null},
		{h, defs.NullableOutDir(), defs.Null},
		// Resolved through the equations of g.
		{k, defs.OutDir(), defs.Top},
		{k, defs.InOutDir(0, defs.Null), defs.Null},
		// The loop may run zero times.
		{each, defs.InDir(0, defs.NotNullParam), defs.Top},
		// Inside the loop only the non-null branch dereferences.
		{guarded, defs.InDir(0, defs.NotNullParam), defs.Top},
		{guarded, defs.InDir(0, defs.NullableParam), defs.Null},
		// Every iteration dereferences on the null branch.
		{strict, defs.InDir(0, defs.NotNullParam), defs.NotNull},
		{strict, defs.InDir(0, defs.NullableParam), defs.Top},
	} {
		key := defs.MkKey(test.m, test.dir, true)
		assert.Equal(t, test.want, sol.facts[key], key.String())
	}

	assert.True(t, sol.effects[defs.MkKey(r, defs.PureDir(), true)].IsTop(), "self call on the same receiver")
	assert.True(t, sol.effects[defs.MkKey(h, defs.PureDir(), true)].IsPure())
}
