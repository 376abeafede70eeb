package lattice

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/analysis/defs"
)

var families = []struct {
	name   string
	l      Lattice
	values []defs.Value
}{
	{"contracts", Contracts, []defs.Value{defs.Bot, defs.NotNull, defs.Null, defs.True, defs.False, defs.Top}},
	{"notnull-params", NotNullParams, []defs.Value{defs.NotNull, defs.Top}},
	{"nullable-params", NullableParams, []defs.Value{defs.Null, defs.Top}},
	{"nullable-results", NullableResults, []defs.Value{defs.Bot, defs.Null}},
}

func TestJoinLaws(t *testing.T) {
	for _, f := range families {
		t.Run(f.name, func(t *testing.T) {
			l := f.l
			for _, a := range f.values {
				assert.Equal(t, a, l.Join(a, a))
				assert.Equal(t, a, l.Join(a, l.Bot))
				assert.Equal(t, l.Top, l.Join(a, l.Top))
				assert.Equal(t, a, l.Meet(a, l.Top))
				assert.True(t, l.Leq(l.Bot, a))
				assert.True(t, l.Leq(a, l.Top))

				for _, b := range f.values {
					j := l.Join(a, b)
					assert.Equal(t, j, l.Join(b, a))
					assert.True(t, l.Leq(a, j), "%v <= %v ⊔ %v", a, a, b)
					assert.Equal(t, l.Meet(a, b), l.Meet(b, a))

					for _, c := range f.values {
						assert.Equal(t, l.Join(l.Join(a, b), c), l.Join(a, l.Join(b, c)))
						if l.Leq(a, b) {
							assert.True(t, l.Leq(l.Join(a, c), l.Join(b, c)), "monotone in %v", c)
						}
					}
				}
			}
		})
	}
}

func TestFor(t *testing.T) {
	assert.Equal(t, NotNullParams, For(defs.InDir(0, defs.NotNullParam)))
	assert.Equal(t, NullableParams, For(defs.InDir(1, defs.NullableParam)))
	assert.Equal(t, Contracts, For(defs.InOutDir(0, defs.True)))
	assert.Equal(t, Contracts, For(defs.OutDir()))
	assert.Equal(t, NullableResults, For(defs.NullableOutDir()))
	assert.Panics(t, func() { For(defs.PureDir()) })
}

func key(i int) defs.Key {
	m := defs.Method{Owner: "T", Name: fmt.Sprint("m", i), Desc: "()Ljava/lang/Object;"}
	return defs.MkKey(m, defs.OutDir(), true)
}

func pending(v defs.Value, keys ...int) Pending {
	p := Pending{}
	for _, i := range keys {
		p.Sum = append(p.Sum, Product{Value: v, Keys: defs.NewKeySet(key(i))})
	}
	return p
}

func TestJoinResults(t *testing.T) {
	l := Contracts

	assert.Equal(t, Final{defs.Top}, l.JoinResults(Final{defs.NotNull}, Final{defs.Null}))
	assert.Equal(t, Final{defs.Null}, l.JoinResults(Final{defs.Bot}, Final{defs.Null}))

	p := pending(defs.NotNull, 1)
	assert.True(t, p.Equal(l.JoinResults(Final{defs.Bot}, p)), "Bot is the identity")
	assert.Equal(t, Final{defs.Top}, l.JoinResults(p, Final{defs.Top}), "Top absorbs")

	mixed := l.JoinResults(Final{defs.Null}, pending(defs.Top, 1))
	assert.True(t, mixed.Equal(Pending{[]Product{
		{Value: defs.Top, Keys: defs.NewKeySet(key(1))},
		{Value: defs.Null},
	}}), mixed.String())

	union := l.JoinResults(pending(defs.NotNull, 1, 2), pending(defs.NotNull, 2, 3))
	require.IsType(t, Pending{}, union)
	assert.Len(t, union.(Pending).Sum, 3, "shared products are not repeated")
	assert.Equal(t, 3, Dependencies(union).Len())
}

func TestJoinResultsCapped(t *testing.T) {
	var left, right []int
	for i := 0; i < EquationSizeLimit/2+1; i++ {
		left = append(left, i)
		right = append(right, 100+i)
	}

	assert.Equal(t, Final{defs.Top}, Contracts.JoinResults(pending(defs.NotNull, left...), pending(defs.NotNull, right...)))
	assert.Equal(t, Final{defs.Bot}, NullableResults.JoinResults(pending(defs.Null, left...), pending(defs.Null, right...)))

	below := Contracts.JoinResults(pending(defs.NotNull, left...), pending(defs.NotNull, 200))
	assert.IsType(t, Pending{}, below)
}

func TestNormalize(t *testing.T) {
	l := Contracts
	k := defs.NewKeySet(key(1))

	assert.Equal(t, Final{defs.Bot}, l.Normalize(nil))
	assert.Equal(t, Final{defs.NotNull}, l.Normalize([]Product{{Value: defs.Bot, Keys: k}, {Value: defs.NotNull}}))
	assert.Equal(t, Final{defs.Top}, l.Normalize([]Product{{Value: defs.True}, {Value: defs.False}, {Value: defs.Null, Keys: k}}))

	r := l.Normalize([]Product{{Value: defs.Null, Keys: k}, {Value: defs.Null, Keys: k}, {Value: defs.NotNull}})
	assert.True(t, r.Equal(Pending{[]Product{{Value: defs.Null, Keys: k}, {Value: defs.NotNull}}}), r.String())

	// NotNull is the bottom of the parameter lattice.
	assert.Equal(t, Final{defs.NotNull}, NotNullParams.Normalize([]Product{{Value: defs.NotNull, Keys: k}}))
}

func TestEffectSet(t *testing.T) {
	call := CallEffect(key(1).WithDir(defs.PureDir()), []DataValue{ThisValue, ParamValue(0)}, false)

	empty := NewEffectSet()
	assert.True(t, empty.IsPure())

	s := empty.Add(ThisChangeQuantum)
	assert.True(t, empty.IsPure(), "Add does not mutate")
	assert.False(t, s.IsPure())
	assert.Equal(t, s, s.Add(ThisChangeQuantum))

	u := s.Union(NewEffectSet(call, ParamChangeQuantum(1)))
	assert.Equal(t, 3, u.Len())
	assert.True(t, u.Has(call))
	assert.True(t, u.Remove(call).Equal(s.Add(ParamChangeQuantum(1))))
	assert.Equal(t, 1, u.Dependencies().Len())

	assert.True(t, u.Union(TopEffect()).IsTop())
	assert.True(t, TopEffect().Union(empty).IsTop())
	assert.True(t, TopEffect().Add(ThisChangeQuantum).IsTop())
	assert.False(t, TopEffect().IsPure())
}

func TestJoinData(t *testing.T) {
	p0 := ParamValue(0)
	assert.Equal(t, p0, JoinData(p0, p0))
	assert.Equal(t, UnknownValue1, JoinData(p0, ParamValue(1)))
	assert.Equal(t, UnknownValue1, JoinData(ThisValue, LocalValue))
	assert.Equal(t, UnknownValue2, JoinData(UnknownValue2, LocalValue))
	assert.True(t, JoinData(OwnedValue, ThisValue).Unknown())
}
