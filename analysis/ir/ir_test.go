package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/analysis/defs"
)

func TestParseType(t *testing.T) {
	for _, test := range []struct {
		desc string
		sort Sort
	}{
		{"I", IntSort},
		{"C", IntSort},
		{"Z", BooleanSort},
		{"J", LongSort},
		{"D", DoubleSort},
		{"Ljava/lang/String;", RefSort},
		{"[[I", RefSort},
		{"Qstring;", IntSort},
	} {
		typ, err := ParseType(test.desc)
		require.NoError(t, err, test.desc)
		assert.Equal(t, test.sort, typ.Sort, test.desc)
		assert.Equal(t, test.desc, typ.Desc)
	}

	for _, bad := range []string{"", "X", "Ljava", "L;", "[V", "II"} {
		_, err := ParseType(bad)
		assert.ErrorIs(t, err, ErrBadDescriptor, bad)
	}
}

func TestParseMethodDesc(t *testing.T) {
	params, ret, err := ParseMethodDesc("(IJLjava/lang/Object;)Z")
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, []Sort{IntSort, LongSort, RefSort}, []Sort{params[0].Sort, params[1].Sort, params[2].Sort})
	assert.True(t, ret.IsBoolean())

	params, ret, err = ParseMethodDesc("()V")
	require.NoError(t, err)
	assert.Empty(t, params)
	assert.Equal(t, VoidSort, ret.Sort)

	for _, bad := range []string{"I)V", "(I", "(V)V", "(I)", "(I)VV"} {
		_, _, err := ParseMethodDesc(bad)
		assert.ErrorIs(t, err, ErrBadDescriptor, bad)
	}
}

func newBody(t *testing.T, desc string, access ...string) *Body {
	t.Helper()
	acc, err := ParseAccess(access...)
	require.NoError(t, err)
	b, err := NewBody(defs.Method{Owner: "T", Name: "m", Desc: desc}, acc)
	require.NoError(t, err)
	return b
}

func TestSlots(t *testing.T) {
	b := newBody(t, "(IJLjava/lang/Object;)Z", "static")
	assert.Equal(t, 4, b.ArgSlots())
	assert.Equal(t, 4, b.MaxLocals)
	assert.Equal(t, 1, b.ParamSlot(1))
	assert.Equal(t, 3, b.ParamSlot(2))

	b = newBody(t, "(IJLjava/lang/Object;)Z")
	assert.Equal(t, 5, b.ArgSlots())
	assert.Equal(t, 4, b.ParamSlot(2))
	assert.True(t, b.Overridable())

	assert.False(t, newBody(t, "()V", "abstract").HasCode())
	_, err := ParseAccess("public", "sealed")
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	b := newBody(t, "(Ljava/lang/Object;)Ljava/lang/Object;", "static")
	require.NoError(t, Assemble(b, `
		; leading comment
		start: aload 0       ; trailing comment
		ifnull isNull
		ldc "a;b"
		areturn
		isNull: aconst_null
		lstore 3
		end: aconst_null
		areturn
		.catch start end isNull java/lang/Exception
	`))

	require.Len(t, b.Insns, 8)
	assert.Equal(t, If, b.Insns[1].Op)
	assert.Equal(t, CondNull, b.Insns[1].Cond)
	assert.Equal(t, 4, b.Insns[1].Target)
	assert.Equal(t, "ifnull 4", b.Insns[1].String())
	assert.Equal(t, "a;b", b.Insns[2].Str)
	assert.Equal(t, ConstString, b.Insns[2].Const)
	assert.Equal(t, 5, b.MaxLocals, "lstore 3 takes slots 3 and 4")

	require.Len(t, b.Handlers, 1)
	assert.Equal(t, Handler{Start: 0, End: 6, Handler: 4, Type: "java/lang/Exception"}, b.Handlers[0])
	assert.True(t, b.HasExceptionalFlow())
}

func TestAssembleOperands(t *testing.T) {
	b := newBody(t, "()V", "static")
	require.NoError(t, Assemble(b, `
		ldc 5
		ldc 3000000000L
		ldc 2.5f
		ldc 1.5
		ldc Ljava/lang/String;
		iinc 2 -1
		switch 0 6 7
		invokeinterface java/util/List.size()I
		getfield T.next:LT;
		return
	`))

	in := b.Insns
	assert.Equal(t, int64(5), in[0].Int)
	assert.Equal(t, IntSort, in[0].Sort)
	assert.Equal(t, LongSort, in[1].Sort)
	assert.Equal(t, FloatSort, in[2].Sort)
	assert.Equal(t, DoubleSort, in[3].Sort)
	assert.Equal(t, ConstClass, in[4].Const)
	assert.Equal(t, 2, in[5].Local)
	assert.Equal(t, int64(-1), in[5].Int)
	assert.Equal(t, []int{0, 6, 7}, in[6].Targets)
	assert.Equal(t, InvokeInterface, in[7].Call.Kind)
	assert.False(t, in[7].Call.Stable())
	assert.True(t, in[7].Dereferences())
	assert.Equal(t, Field{Owner: "T", Name: "next", Desc: "LT;"}, in[8].Field)
	assert.Equal(t, RefSort, in[8].Sort)
}

func TestAssembleErrors(t *testing.T) {
	for _, test := range []struct {
		code string
		err  error
	}{
		{"frobnicate", ErrUnknownMnemonic},
		{"goto nowhere", ErrUndefinedLabel},
		{"goto 1", ErrUndefinedLabel},
		{"iload", ErrBadOperand},
		{"iload -1", ErrBadOperand},
		{"iload x", ErrBadOperand},
		{"getfield T.f", ErrBadOperand},
		{"ldc", ErrBadOperand},
		{"ldc \"open", ErrBadOperand},
		{"newarray widget", ErrBadOperand},
		{"switch", ErrBadOperand},
		{"invokestatic T.m(V)V", ErrBadDescriptor},
		{"a: return\n.catch a a a", ErrBadOperand},
		{"return\n.catch 0 1", ErrBadOperand},
		{"pop\nreturn", ErrStackUnderflow},
		{"iconst_0\nifeq done\niconst_1\ndone: iadd\npop\nreturn", ErrStackUnderflow},
		{"start: iconst_0\nend: pop\nreturn\nhandler: pop\npop\nreturn\n.catch start end handler", ErrStackUnderflow},
	} {
		b := newBody(t, "()V", "static")
		err := Assemble(b, test.code)
		assert.ErrorIs(t, err, test.err, test.code)
	}
}

func TestCondNegate(t *testing.T) {
	for _, c := range []Cond{CondEq, CondNe, CondLt, CondGe, CondGt, CondLe, CondNull, CondNonNull} {
		assert.NotEqual(t, c, c.Negate())
		assert.Equal(t, c, c.Negate().Negate())
	}
}

const hierarchyYAML = `
classes:
  - name: Base
    methods:
      - name: get
        desc: ()Ljava/lang/Object;
        code: |
          aconst_null
          areturn
      - name: fixed
        desc: ()V
        access: [final]
        code: return
  - name: Sub
    super: Base
    fields:
      - {name: items, desc: "[I", access: [private]}
      - {name: shared, desc: Ljava/lang/Object;, access: [private]}
    methods:
      - name: get
        desc: ()Ljava/lang/Object;
        code: |
          aload 0
          areturn
      - name: "<init>"
        desc: ()V
        code: |
          aload 0
          iconst_3
          newarray int
          putfield Sub.items:[I
          aload 0
          new java/lang/Object
          dup
          invokespecial java/lang/Object.<init>()V
          putfield Sub.shared:Ljava/lang/Object;
          return
      - name: leak
        desc: (Ljava/lang/Object;)V
        code: |
          aload 0
          aload 1
          putfield Sub.shared:Ljava/lang/Object;
          return
  - name: Leaf
    super: Sub
    access: [final]
    methods:
      - name: own
        desc: ()V
        code: return
      - name: call
        desc: ()V
        code: |
          aload 0
          invokevirtual Leaf.own()V
          aload 0
          invokevirtual Base.fixed()V
          aload 0
          invokevirtual Base.get()Ljava/lang/Object;
          pop
          return
`

func loadHierarchy(t *testing.T) *Program {
	t.Helper()
	p, err := LoadProgram(strings.NewReader(hierarchyYAML))
	require.NoError(t, err)
	return p
}

func method(owner, name, desc string) defs.Method {
	return defs.Method{Owner: owner, Name: name, Desc: desc}
}

func TestResolve(t *testing.T) {
	p := loadHierarchy(t)

	b, ok := p.Resolve(method("Leaf", "get", "()Ljava/lang/Object;"))
	require.True(t, ok)
	assert.Equal(t, "Sub", b.Method.Owner)

	_, ok = p.Resolve(method("Leaf", "missing", "()V"))
	assert.False(t, ok)

	decl, ok := p.ResolveField(Field{Owner: "Leaf", Name: "items", Desc: "[I"})
	require.True(t, ok)
	assert.True(t, decl.Access.Has(AccPrivate))

	over := p.Overriders(method("Base", "get", "()Ljava/lang/Object;"))
	require.Len(t, over, 1)
	assert.Equal(t, "Sub", over[0].Method.Owner)
}

func TestDevirtualize(t *testing.T) {
	p := loadHierarchy(t)
	assert.Equal(t, 2, p.Devirtualize())

	b, ok := p.Body(method("Leaf", "call", "()V"))
	require.True(t, ok)
	assert.True(t, b.Insns[1].Call.Stable(), "declared in a final class")
	assert.True(t, b.Insns[3].Call.Stable(), "final method")
	assert.False(t, b.Insns[5].Call.Stable())
}

func TestOwnedFields(t *testing.T) {
	p := loadHierarchy(t)
	assert.Equal(t, map[Field]bool{{Owner: "Sub", Name: "items", Desc: "[I"}: true}, p.OwnedFields())
}

func TestLoadProgramErrors(t *testing.T) {
	for _, bad := range []string{
		"classes:\n  - name: A\n  - name: A\n",
		"classes:\n  - name: A\n    colour: red\n",
		"classes:\n  - super: A\n",
		"classes:\n  - name: A\n    methods:\n      - {name: m, desc: ()V, code: frobnicate}\n",
		"classes:\n  - name: A\n    fields:\n      - {name: f, desc: X}\n",
	} {
		_, err := LoadProgram(strings.NewReader(bad))
		assert.Error(t, err, bad)
	}

	// A body that returns a value it never pushed is rejected at load.
	_, err := LoadProgram(strings.NewReader(
		"classes:\n  - name: A\n    methods:\n      - {name: bad, desc: ()Ljava/lang/Object;, code: areturn}\n"))
	assert.ErrorIs(t, err, ErrStackUnderflow)
}

func TestCheckStack(t *testing.T) {
	b := newBody(t, "(J)J", "static")
	require.NoError(t, Assemble(b, `
		lload 0
		dup2
		pop2
		lreturn
	`))

	b = newBody(t, "(Ljava/lang/Object;)Ljava/lang/Object;", "static")
	require.NoError(t, Assemble(b, `
		start: aload 0
		invokevirtual java/lang/Object.toString()Ljava/lang/String;
		end: areturn
		handler: astore 0
		aconst_null
		areturn
		.catch start end handler
	`), "handlers start with the exception on the stack")

	// Only reachable instructions are checked.
	b = newBody(t, "()V", "static")
	require.NoError(t, Assemble(b, "return\npop\nreturn"))
}
