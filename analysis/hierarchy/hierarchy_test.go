package hierarchy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/analysis/defs"
	. "github.com/cs-au-dk/contra/analysis/hierarchy"
	"github.com/cs-au-dk/contra/analysis/ir"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	tu "github.com/cs-au-dk/contra/testutil"
)

const shapes = `
classes:
- name: Shape
  super: java/lang/Object
  fields:
  - {name: hits, desc: I, access: [volatile]}
  - {name: size, desc: I}
  methods:
  - name: name
    desc: ()Ljava/lang/String;
    access: [public]
    code: |
      ldc "shape"
      areturn
  - name: hits
    desc: ()I
    access: [public, final]
    code: |
      aload 0
      getfield Shape.hits:I
      ireturn
  - name: size
    desc: ()I
    access: [public, final]
    code: |
      aload 0
      getfield Shape.size:I
      ireturn
- name: Circle
  super: Shape
  methods:
  - name: name
    desc: ()Ljava/lang/String;
    access: [public]
    code: |
      new java/lang/String
      dup
      invokespecial java/lang/String.<init>()V
      areturn
- name: Use
  super: java/lang/Object
  methods:
  - name: describe
    desc: (LShape;)Ljava/lang/String;
    access: [public, static]
    code: |
      aload 0
      invokevirtual Shape.name()Ljava/lang/String;
      areturn
`

func load(t *testing.T) *ir.Program {
	t.Helper()
	p, err := ir.LoadProgram(strings.NewReader(shapes))
	require.NoError(t, err)
	return p
}

func key(m string, d defs.Direction) defs.Key {
	meth, err := defs.ParseMethod(m)
	if err != nil {
		panic(err)
	}
	return defs.MkKey(meth, d, true)
}

func TestClosedWorldEquations(t *testing.T) {
	eqs, effs := ClosedWorld(load(t))

	byKey := map[defs.Key]L.Equation{}
	for _, eq := range eqs {
		byKey[eq.Key] = eq
	}
	// Final methods and static methods have no unstable equations.
	for _, eq := range eqs {
		assert.Contains(t, eq.Key.Method.Name, "name")
		assert.False(t, eq.Key.Stable)
	}

	shapeOut := key("Shape.name()Ljava/lang/String;", defs.OutDir()).MkUnstable()
	require.Contains(t, byKey, shapeOut)
	pending, ok := byKey[shapeOut].Result.(L.Pending)
	require.True(t, ok)
	assert.Len(t, pending.Sum, 2, "Shape.name and Circle.name")

	circleOut := key("Circle.name()Ljava/lang/String;", defs.OutDir()).MkUnstable()
	require.Contains(t, byKey, circleOut)
	assert.Len(t, byKey[circleOut].Result.(L.Pending).Sum, 1)

	require.Len(t, effs, 2)
	for _, e := range effs {
		switch e.Key.Method.Owner {
		case "Shape":
			assert.Equal(t, 2, e.Effects.Quanta.Len())
			assert.Equal(t, L.UnknownValue1, e.Effects.Returns, "joined provenance")
		case "Circle":
			assert.Equal(t, 1, e.Effects.Quanta.Len())
			assert.Equal(t, L.ReturnData, e.Effects.Returns.Kind)
		}
	}
}

func TestClosedWorldSolution(t *testing.T) {
	p := load(t)
	describe := key("Use.describe(LShape;)Ljava/lang/String;", defs.OutDir())

	open := tu.Solve(p, tu.Options{})
	assert.Equal(t, defs.Top, open.Facts[describe])
	assert.True(t, open.Effects[describe.WithDir(defs.PureDir())].IsTop())

	closed := tu.Solve(load(t), tu.Options{ClosedWorld: true})
	assert.Equal(t, defs.NotNull, closed.Facts[describe])
	assert.True(t, closed.Effects[describe.WithDir(defs.PureDir())].IsPure())
}

func TestVolatility(t *testing.T) {
	p := load(t)

	effs := Volatility(p)
	require.Len(t, effs, 2)

	sol := tu.Solve(p, tu.Options{})
	assert.True(t, sol.Effects[key("Shape.hits()I", defs.PureDir())].IsTop())
	assert.True(t, sol.Effects[key("Shape.size()I", defs.PureDir())].IsPure())
}
