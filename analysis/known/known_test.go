package known

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/analysis/defs"
)

func TestBuiltin(t *testing.T) {
	tab := Builtin()
	require.NotEmpty(t, tab.Facts)
	require.NotEmpty(t, tab.Effects)

	m, err := defs.ParseMethod("java/util/Objects.requireNonNull(Ljava/lang/Object;)Ljava/lang/Object;")
	require.NoError(t, err)

	facts := map[defs.Key]defs.Value{}
	for _, f := range tab.Facts {
		facts[f.Key] = f.Value
	}
	for _, stable := range []bool{true, false} {
		assert.Equal(t, defs.NotNull, facts[defs.MkKey(m, defs.InDir(0, defs.NotNullParam), stable)])
		assert.Equal(t, defs.NotNull, facts[defs.MkKey(m, defs.OutDir(), stable)])
	}

	valueOf, err := defs.ParseMethod("java/lang/String.valueOf(Ljava/lang/Object;)Ljava/lang/String;")
	require.NoError(t, err)
	for _, stable := range []bool{true, false} {
		assert.Equal(t, defs.Null, facts[defs.MkKey(valueOf, defs.InDir(0, defs.NullableParam), stable)])
	}

	for _, e := range tab.Effects {
		if e.Key.Method == m {
			assert.True(t, e.Effects.Quanta.IsPure())
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, input string
	}{
		{"Bad method", "- method: nodescriptor\n"},
		{"Bad direction", "- method: A.f()V\n  facts:\n    sideways: Top\n"},
		{"Bad value", "- method: A.f()V\n  facts:\n    out: Maybe\n"},
		{"Empty value", "- method: A.f()V\n  facts:\n    out: \"\"\n"},
		{"Nested value", "- method: A.f()V\n  facts:\n    out: [Top]\n"},
		{"Bad effect", "- method: A.f()V\n  effects: [everything]\n"},
		{"Bad provenance", "- method: A.f()V\n  effects: []\n  returns: elsewhere\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(test.input))
			assert.ErrorIs(t, err, ErrBadEntry)
		})
	}

	_, err := Parse(strings.NewReader("- method: A.f()V\n  unknown: 1\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestParseValues(t *testing.T) {
	tab, err := Parse(strings.NewReader(`
- method: a/B.f(Ljava/lang/Object;)V
  facts:
    in:0:nullable: Null
    in:0:notnull: null
- method: a/B.g()Z
  facts:
    out: True
`))
	require.NoError(t, err)

	facts := map[defs.Key]defs.Value{}
	for _, f := range tab.Facts {
		facts[f.Key] = f.Value
	}
	f := defs.Method{Owner: "a/B", Name: "f", Desc: "(Ljava/lang/Object;)V"}
	g := defs.Method{Owner: "a/B", Name: "g", Desc: "()Z"}
	assert.Equal(t, defs.Null, facts[defs.MkKey(f, defs.InDir(0, defs.NullableParam), true)])
	assert.Equal(t, defs.Null, facts[defs.MkKey(f, defs.InDir(0, defs.NotNullParam), true)])
	assert.Equal(t, defs.True, facts[defs.MkKey(g, defs.OutDir(), true)])
}

func TestParseEffects(t *testing.T) {
	tab, err := Parse(strings.NewReader(`
- method: A.f(Ljava/lang/Object;)V
  effects: [this, "param:0"]
- method: A.g()V
  final: true
  effects: [top]
`))
	require.NoError(t, err)
	require.Len(t, tab.Effects, 3)
	assert.Equal(t, 2, tab.Effects[0].Effects.Quanta.Len())
	assert.True(t, tab.Effects[1].Effects.Quanta.IsTop())
	assert.False(t, tab.Effects[2].Key.Stable)
}
