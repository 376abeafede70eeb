package purity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	. "github.com/cs-au-dk/contra/analysis/purity"
	tu "github.com/cs-au-dk/contra/testutil"
)

var f = ir.Field{Owner: "T", Name: "f", Desc: "Ljava/lang/Object;"}

func pureKey(owner, name, desc string, stable bool) defs.Key {
	return defs.MkKey(defs.Method{Owner: owner, Name: name, Desc: desc}, defs.PureDir(), stable)
}

func TestEffects(t *testing.T) {
	ctor := pureKey("java/lang/StringBuilder", "<init>", "()V", true)
	hashCode := pureKey("java/lang/Object", "hashCode", "()I", false)
	read := L.FieldRead(defs.MkKey(f.Method(), defs.VolatileDir(), true))

	for _, test := range []struct {
		name, desc, code string
		static           bool
		quanta           L.EffectSet
		returns          L.DataValue
	}{
		{
			"fresh object", "()Ljava/lang/Object;", `
				new java/lang/StringBuilder
				dup
				invokespecial java/lang/StringBuilder.<init>()V
				areturn`,
			true,
			L.NewEffectSet(L.CallEffect(ctor, []L.DataValue{L.LocalValue}, false)),
			L.LocalValue,
		},
		{
			"local array", "()Ljava/lang/Object;", `
				iconst_1
				newarray int
				dup
				iconst_0
				iconst_0
				iastore
				areturn`,
			true, L.NewEffectSet(), L.LocalValue,
		},
		{
			"this change", "(Ljava/lang/Object;)V", `
				aload 0
				aload 1
				putfield T.f:Ljava/lang/Object;
				return`,
			false, L.NewEffectSet(L.ThisChangeQuantum), L.UnknownValue1,
		},
		{
			"param change", "(LT;)V", `
				aload 0
				aconst_null
				putfield T.f:Ljava/lang/Object;
				return`,
			true, L.NewEffectSet(L.ParamChangeQuantum(0)), L.UnknownValue1,
		},
		{
			"field read", "()Ljava/lang/Object;", `
				aload 0
				getfield T.f:Ljava/lang/Object;
				areturn`,
			false, L.NewEffectSet(read), L.UnknownValue1,
		},
		{
			"call", "(Ljava/lang/Object;)I", `
				aload 0
				invokevirtual java/lang/Object.hashCode()I
				ireturn`,
			true, L.NewEffectSet(L.CallEffect(hashCode, []L.DataValue{L.ParamValue(0)}, false)), L.UnknownValue1,
		},
		{
			"static write", "()V", `
				aconst_null
				putstatic T.g:Ljava/lang/Object;
				return`,
			true, L.TopEffect(), L.UnknownValue1,
		},
		{
			"unreachable", "()V", `
				return
				aload 0
				aconst_null
				putfield T.f:Ljava/lang/Object;
				return`,
			false, L.NewEffectSet(), L.UnknownValue1,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			access := []string{}
			if test.static {
				access = append(access, "static")
			}
			b := tu.Body(t, "m", test.desc, test.code, access...)
			e := Analyze(b, cfg.Build(b), nil)

			assert.True(t, test.quanta.Equal(e.Quanta), "expected %v, got %v", test.quanta, e.Quanta)
			assert.Equal(t, test.returns, e.Returns)
		})
	}
}

func TestOwnedField(t *testing.T) {
	b := tu.Body(t, "m", "()Ljava/lang/Object;", `
		aload 0
		getfield T.f:Ljava/lang/Object;
		dup
		aconst_null
		putfield T.f:Ljava/lang/Object;
		areturn`)

	e := Analyze(b, cfg.Build(b), map[ir.Field]bool{f: true})
	assert.Equal(t, L.OwnedValue, e.Returns)
	assert.True(t, e.Quanta.Has(L.ThisChangeQuantum), "writes into owned objects change this")
}

func TestReturnJoin(t *testing.T) {
	b := tu.Body(t, "m", "(ZLjava/lang/Object;)Ljava/lang/Object;", `
		iload 0
		ifeq other
		aload 1
		areturn
		other: new java/lang/Object
		areturn`, "static")

	e := Analyze(b, cfg.Build(b), nil)
	assert.True(t, e.Quanta.IsPure())
	assert.Equal(t, L.UnknownValue1, e.Returns)
}

func TestEquation(t *testing.T) {
	b := tu.Body(t, "m", "()V", "return", "static")
	eq := Equation(b, cfg.Build(b), nil)
	assert.Equal(t, defs.MkKey(b.Method, defs.PureDir(), true), eq.Key)
	assert.True(t, eq.Effects.Quanta.IsPure())
}
