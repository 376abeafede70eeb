package absint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/origins"
	tu "github.com/cs-au-dk/contra/testutil"
)

const checked = `
	aload 0
	ifnull isNull
	aload 0
	invokevirtual java/lang/Object.toString()Ljava/lang/String;
	areturn
	isNull: aconst_null
	areturn
`

func final(v defs.Value) L.Result {
	return L.Final{Value: v}
}

func pending(prods ...L.Product) L.Result {
	return L.Pending{Sum: prods}
}

func product(v defs.Value, keys ...defs.Key) L.Product {
	return L.Product{Value: v, Keys: defs.NewKeySet(keys...)}
}

func results(eqs []L.Equation) map[defs.Direction]L.Result {
	res := make(map[defs.Direction]L.Result, len(eqs))
	for _, eq := range eqs {
		res[eq.Key.Dir] = eq.Result
	}
	return res
}

func assertResult(t *testing.T, want, got L.Result, msg string) {
	t.Helper()
	require.NotNil(t, got, msg)
	assert.True(t, want.Equal(got), "%s: expected %v, got %v", msg, want, got)
}

func TestDirections(t *testing.T) {
	b := tu.Body(t, "m", "(ZLjava/lang/Object;I)Ljava/lang/Object;", "aconst_null\nareturn", "static")
	assert.Equal(t, []defs.Direction{
		defs.InOutDir(0, defs.True), defs.InOutDir(0, defs.False),
		defs.InDir(1, defs.NotNullParam), defs.InDir(1, defs.NullableParam),
		defs.InOutDir(1, defs.Null), defs.InOutDir(1, defs.NotNull),
		defs.OutDir(), defs.NullableOutDir(),
	}, Directions(b))

	b = tu.Body(t, "m", "(ZLjava/lang/Object;)V", "return", "static")
	assert.Equal(t, []defs.Direction{
		defs.InDir(1, defs.NotNullParam), defs.InDir(1, defs.NullableParam),
	}, Directions(b))

	b = tu.Body(t, "m", "(Z)Z", "iload 0\nireturn", "static")
	assert.Equal(t, []defs.Direction{
		defs.InOutDir(0, defs.True), defs.InOutDir(0, defs.False), defs.OutDir(),
	}, Directions(b))
}

func TestAnalyzeBranches(t *testing.T) {
	b := tu.Body(t, "m", "(Ljava/lang/Object;)Ljava/lang/Object;", checked, "static")
	eqs, stats := Analyze(context.Background(), b, DefaultLimits)
	require.Len(t, eqs, 6)
	require.Len(t, stats, 6)
	for _, st := range stats {
		assert.False(t, st.Combined)
		assert.Equal(t, NotDegraded, st.Degraded)
	}
	for _, eq := range eqs {
		assert.Equal(t, b.Method, eq.Key.Method)
		assert.True(t, eq.Key.Stable)
	}

	toString := defs.Method{Owner: "java/lang/Object", Name: "toString", Desc: "()Ljava/lang/String;"}
	out := defs.MkKey(toString, defs.OutDir(), false)

	res := results(eqs)
	// A null argument is checked, not dereferenced.
	assertResult(t, final(defs.Top), res[defs.InDir(0, defs.NotNullParam)], "In(0,NotNull)")
	assertResult(t, final(defs.Null), res[defs.InDir(0, defs.NullableParam)], "In(0,Nullable)")
	assertResult(t, final(defs.Null), res[defs.InOutDir(0, defs.Null)], "InOut(0,Null)")
	assertResult(t, pending(product(defs.Top, out)), res[defs.InOutDir(0, defs.NotNull)], "InOut(0,NotNull)")
	assertResult(t, pending(product(defs.Top, out), product(defs.Null)), res[defs.OutDir()], "Out")
	// One path returns null; the other path no longer matters.
	assertResult(t, final(defs.Null), res[defs.NullableOutDir()], "NullableOut")
}

func TestAnalyzeBooleanContract(t *testing.T) {
	// Returns the negation of check(x).
	b := tu.Body(t, "m", "(Ljava/lang/Object;)Z", `
		aload 0
		invokestatic T.check(Ljava/lang/Object;)Z
		ifeq no
		iconst_0
		ireturn
		no: iconst_1
		ireturn
	`, "static")

	check := defs.Method{Owner: "T", Name: "check", Desc: "(Ljava/lang/Object;)Z"}
	k := defs.MkKey(check, defs.OutDir(), true)

	g := cfg.Build(b)
	r, st := Run(context.Background(), b, g, origins.Analyze(b, g), defs.OutDir(), DefaultLimits)
	assert.Equal(t, NotDegraded, st.Degraded)
	assertResult(t, pending(product(defs.False, k.Negate()), product(defs.True, k.Negate())), r, "Out")
}

func TestAnalyzeUnusedParameter(t *testing.T) {
	b := tu.Body(t, "m", "(Ljava/lang/Object;)Ljava/lang/Object;", "aconst_null\nareturn", "static")
	eqs, stats := Analyze(context.Background(), b, DefaultLimits)
	require.Len(t, eqs, 6)
	require.Len(t, stats, 1, "only Out and NullableOut need a run")
	assert.True(t, stats[0].Combined)

	self := defs.MkKey(b.Method, defs.OutDir(), true)
	res := results(eqs)
	assertResult(t, final(defs.Top), res[defs.InDir(0, defs.NotNullParam)], "In(0,NotNull)")
	assertResult(t, final(defs.Null), res[defs.InDir(0, defs.NullableParam)], "In(0,Nullable)")
	assertResult(t, pending(product(defs.Top, self)), res[defs.InOutDir(0, defs.Null)], "InOut(0,Null)")
	assertResult(t, pending(product(defs.Top, self)), res[defs.InOutDir(0, defs.NotNull)], "InOut(0,NotNull)")
	assertResult(t, final(defs.Null), res[defs.OutDir()], "Out")
	assertResult(t, final(defs.Null), res[defs.NullableOutDir()], "NullableOut")
}

func TestAnalyzeIdentity(t *testing.T) {
	b := tu.Body(t, "m", "(Ljava/lang/Object;)Ljava/lang/Object;", "aload 0\nareturn", "static")
	eqs, _ := Analyze(context.Background(), b, DefaultLimits)

	res := results(eqs)
	assertResult(t, final(defs.Top), res[defs.InDir(0, defs.NotNullParam)], "In(0,NotNull)")
	assertResult(t, final(defs.Null), res[defs.InDir(0, defs.NullableParam)], "In(0,Nullable)")
	assertResult(t, final(defs.Null), res[defs.InOutDir(0, defs.Null)], "InOut(0,Null)")
	assertResult(t, final(defs.NotNull), res[defs.InOutDir(0, defs.NotNull)], "InOut(0,NotNull)")
	assertResult(t, final(defs.Top), res[defs.OutDir()], "Out")
	assertResult(t, final(defs.Bot), res[defs.NullableOutDir()], "NullableOut")
}

// The straight-line engine and the worklist engine agree on methods without
// branches.
func TestCombinedAgreesWithEngine(t *testing.T) {
	b := tu.Body(t, "m", "(Ljava/lang/Object;Ljava/lang/String;)Ljava/lang/Object;", `
		aload 1
		invokevirtual java/lang/String.length()I
		pop
		aload 0
		invokestatic T.id(Ljava/lang/Object;)Ljava/lang/Object;
		areturn
	`, "static")

	g := cfg.Build(b)
	require.False(t, cfg.HasBranches(g))
	orig := origins.Analyze(b, g)
	dirs := Directions(b)

	combined, st := RunCombined(b, orig, dirs)
	assert.True(t, st.Combined)
	for i, d := range dirs {
		r, _ := Run(context.Background(), b, g, orig, d, DefaultLimits)
		assertResult(t, r, combined[i], d.String())
	}

	id := defs.Method{Owner: "T", Name: "id", Desc: "(Ljava/lang/Object;)Ljava/lang/Object;"}
	assertResult(t, pending(product(defs.Top, defs.MkKey(id, defs.InDir(0, defs.NotNullParam), true))),
		combined[0], "In(0,NotNull)")
	assertResult(t, final(defs.NotNull), combined[4], "In(1,NotNull)")
}

func TestLoopTerminates(t *testing.T) {
	b := tu.Body(t, "m", "(I)Ljava/lang/Object;", `
		loop: iload 0
		ifle done
		iinc 0 -1
		goto loop
		done: aconst_null
		areturn
	`, "static")

	eqs, stats := Analyze(context.Background(), b, DefaultLimits)
	require.Len(t, eqs, 2)
	for _, st := range stats {
		assert.Equal(t, NotDegraded, st.Degraded)
	}
	res := results(eqs)
	assertResult(t, final(defs.Null), res[defs.OutDir()], "Out")
	assertResult(t, final(defs.Null), res[defs.NullableOutDir()], "NullableOut")
}

func TestDegradation(t *testing.T) {
	b := tu.Body(t, "m", "(Ljava/lang/Object;)Ljava/lang/Object;", checked, "static")
	g := cfg.Build(b)
	orig := origins.Analyze(b, g)

	r, st := Run(context.Background(), b, g, orig, defs.OutDir(), Limits{StepsLimit: 1})
	assert.Equal(t, StepsExceeded, st.Degraded)
	assertResult(t, final(L.Contracts.Unknown), r, "Out")

	r, st = Run(context.Background(), b, g, orig, defs.NullableOutDir(), Limits{StepsLimit: 1})
	assert.Equal(t, StepsExceeded, st.Degraded)
	assertResult(t, final(L.NullableResults.Unknown), r, "NullableOut")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, st = Run(ctx, b, g, orig, defs.OutDir(), Limits{InterruptEvery: 1})
	assert.Equal(t, Interrupted, st.Degraded)
	assertResult(t, final(defs.Top), r, "Out")
}

func TestAnalyzeAbstract(t *testing.T) {
	acc, err := ir.ParseAccess("abstract")
	require.NoError(t, err)
	b, err := ir.NewBody(defs.Method{Owner: "T", Name: "m", Desc: "(Ljava/lang/Object;)V"}, acc)
	require.NoError(t, err)

	eqs, stats := Analyze(context.Background(), b, DefaultLimits)
	assert.Empty(t, eqs)
	assert.Empty(t, stats)
}
