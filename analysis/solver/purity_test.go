package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cs-au-dk/contra/analysis/defs"
	L "github.com/cs-au-dk/contra/analysis/lattice"
)

func pure(m defs.Method) defs.Key {
	return defs.MkKey(m, defs.PureDir(), true)
}

func volatile(name string) defs.Key {
	return defs.MkKey(defs.FieldMethod("Test", name, "I"), defs.VolatileDir(), true)
}

func effects(ret L.DataValue, qs ...L.EffectQuantum) L.Effects {
	return L.Effects{Quanta: L.NewEffectSet(qs...), Returns: ret}
}

func TestPuritySolver(t *testing.T) {
	tests := []struct {
		name string
		eqs  []L.EffectEquation
		key  defs.Key
		want L.EffectSet
	}{{
		"Mutating a fresh object is pure",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.UnknownValue1, L.ThisChangeQuantum)},
			{Key: pure(mf), Effects: effects(L.LocalValue,
				L.CallEffect(pure(mg), []L.DataValue{L.LocalValue}, false))},
		},
		pure(mf),
		L.NewEffectSet(),
	}, {
		"Receiver mutation through a call",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.UnknownValue1, L.ThisChangeQuantum)},
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mg), []L.DataValue{L.ThisValue}, false))},
		},
		pure(mf),
		L.NewEffectSet(L.ThisChangeQuantum),
	}, {
		"Parameter mutation through a call",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.UnknownValue1, L.ParamChangeQuantum(0))},
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mg), []L.DataValue{L.ThisValue, L.ParamValue(1)}, false))},
		},
		pure(mf),
		L.NewEffectSet(L.ParamChangeQuantum(1)),
	}, {
		"Static call maps parameters directly",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.UnknownValue1, L.ParamChangeQuantum(0))},
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mg), []L.DataValue{L.ParamValue(2)}, true))},
		},
		pure(mf),
		L.NewEffectSet(L.ParamChangeQuantum(2)),
	}, {
		"Mutating an unknown object is impure",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.UnknownValue1, L.ParamChangeQuantum(0))},
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mg), []L.DataValue{L.UnknownValue1}, true))},
		},
		pure(mf),
		L.TopEffect(),
	}, {
		"Volatile read is impure",
		[]L.EffectEquation{
			{Key: volatile("v"), Effects: L.Effects{Quanta: L.TopEffect()}},
			{Key: pure(mf), Effects: effects(L.UnknownValue1, L.FieldRead(volatile("v")))},
		},
		pure(mf),
		L.TopEffect(),
	}, {
		"Plain field read is pure",
		[]L.EffectEquation{
			{Key: volatile("x"), Effects: effects(L.UnknownValue1)},
			{Key: pure(mf), Effects: effects(L.UnknownValue1, L.FieldRead(volatile("x")))},
		},
		pure(mf),
		L.NewEffectSet(),
	}, {
		"Unknown field read is impure",
		[]L.EffectEquation{
			{Key: pure(mf), Effects: effects(L.UnknownValue1, L.FieldRead(volatile("y")))},
		},
		pure(mf),
		L.TopEffect(),
	}, {
		"Mutating a fresh call result is pure",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.LocalValue)},
			{Key: pure(mf), Effects: effects(L.UnknownValue1, L.ReturnChange(pure(mg)))},
		},
		pure(mf),
		L.NewEffectSet(),
	}, {
		"Mutating a shared call result is impure",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.ThisValue)},
			{Key: pure(mf), Effects: effects(L.UnknownValue1, L.ReturnChange(pure(mg)))},
		},
		pure(mf),
		L.TopEffect(),
	}, {
		"Call result passed on and mutated",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.LocalValue)},
			{Key: pure(mh), Effects: effects(L.UnknownValue1, L.ParamChangeQuantum(0))},
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mh), []L.DataValue{L.ReturnValue(pure(mg))}, true))},
		},
		pure(mf),
		L.NewEffectSet(),
	}, {
		"Self recursion",
		[]L.EffectEquation{
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mf), []L.DataValue{L.ThisValue}, false))},
		},
		pure(mf),
		L.TopEffect(),
	}, {
		"Virtual call without closed world",
		[]L.EffectEquation{
			{Key: pure(mg), Effects: effects(L.UnknownValue1)},
			{Key: pure(mf), Effects: effects(L.UnknownValue1,
				L.CallEffect(pure(mg).MkUnstable(), []L.DataValue{L.LocalValue}, false))},
		},
		pure(mf),
		L.TopEffect(),
	}, {
		"Duplicate equations are joined",
		[]L.EffectEquation{
			{Key: pure(mf), Effects: effects(L.LocalValue, L.ThisChangeQuantum)},
			{Key: pure(mf), Effects: effects(L.LocalValue, L.ParamChangeQuantum(0))},
		},
		pure(mf),
		L.NewEffectSet(L.ThisChangeQuantum, L.ParamChangeQuantum(0)),
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := NewPuritySolver()
			s.Add(test.eqs...)
			got := s.Solve()
			assert.True(t, test.want.Equal(got[test.key]), "expected %v, got %v", test.want, got[test.key])
			assert.Empty(t, s.pending)
		})
	}
}

func TestPuritySolverKnown(t *testing.T) {
	s := NewPuritySolver()
	s.AddSolved(pure(mg), effects(L.UnknownValue1))
	s.Add(L.EffectEquation{Key: pure(mf), Effects: effects(L.UnknownValue1,
		L.CallEffect(pure(mg), []L.DataValue{L.ParamValue(0)}, true))})
	assert.True(t, s.Solve()[pure(mf)].IsPure())
}

func TestPuritySolverMutualRecursion(t *testing.T) {
	s := NewPuritySolver()
	s.Add(
		L.EffectEquation{Key: pure(mf), Effects: effects(L.UnknownValue1,
			L.CallEffect(pure(mg), []L.DataValue{L.ThisValue}, false))},
		L.EffectEquation{Key: pure(mg), Effects: effects(L.UnknownValue1,
			L.CallEffect(pure(mf), []L.DataValue{L.ThisValue}, false))},
	)
	got := s.Solve()
	assert.True(t, got[pure(mf)].IsTop())
	assert.True(t, got[pure(mg)].IsTop())
	assert.Equal(t, 1, s.Stats.Clusters)
}
