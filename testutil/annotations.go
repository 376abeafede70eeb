package testutil

import (
	"fmt"

	"golang.org/x/tools/go/expect"

	"github.com/cs-au-dk/contra/analysis/defs"
	L "github.com/cs-au-dk/contra/analysis/lattice"
)

type Annotation interface {
	// Returns related annotations (created from notes on the same line).
	Related() []Annotation
	String() string

	Note() *expect.Note
	Manager() NotesManager
	// Method is the function declared on the annotated line.
	Method() defs.Method

	// Check compares the annotation against the solved facts. A nil error
	// means that the inferred facts agree with the annotation.
	Check() error
	FalseNegative() bool
}

type AnnFalseNegative struct {
	basicAnnotation
}

// factAnnotation expects the stable key of the annotated method in
// direction dir to be solved to value.
type factAnnotation struct {
	basicAnnotation
	dir   defs.Direction
	value defs.Value
}

func (a factAnnotation) Check() error {
	res := a.mgr.loadRes
	if got := res.Fact(a.method, a.dir); got != a.value {
		return fmt.Errorf("%v %v: expected %v, inferred %v", a.method, a.dir, a.value, got)
	}
	return nil
}

type AnnNotNull struct{ factAnnotation }
type AnnNullable struct{ factAnnotation }
type AnnOut struct{ factAnnotation }
type AnnNullableOut struct{ factAnnotation }
type AnnContract struct{ factAnnotation }

// effectAnnotation expects the solved effects of the annotated method to
// equal effects.
type effectAnnotation struct {
	basicAnnotation
	effects L.EffectSet
}

func (a effectAnnotation) Check() error {
	got, ok := a.mgr.loadRes.Purity(a.method)
	if !ok {
		return fmt.Errorf("%v: no effects inferred", a.method)
	}
	if !got.Equal(a.effects) {
		return fmt.Errorf("%v: expected effects %v, inferred %v", a.method, a.effects, got)
	}
	return nil
}

type AnnPure struct{ effectAnnotation }
type AnnImpure struct{ effectAnnotation }
type AnnMutates struct{ effectAnnotation }

func paramOf(arg interface{}) (int, error) {
	switch arg := arg.(type) {
	case int64:
		return int(arg), nil
	}
	return 0, fmt.Errorf("expected a parameter index, got %v", arg)
}

func valueOf(arg interface{}) (defs.Value, error) {
	switch arg := arg.(type) {
	case expect.Identifier:
		return defs.ParseValue(string(arg))
	case bool:
		if arg {
			return defs.True, nil
		}
		return defs.False, nil
	case nil:
		return defs.Null, nil
	}
	return 0, fmt.Errorf("expected a fact value, got %v", arg)
}

// CreateAnnotation interprets a note. Unknown note names and malformed
// arguments panic, since they are mistakes in the test source.
func (n NotesManager) CreateAnnotation(note *expect.Note, m defs.Method) Annotation {
	basic := basicAnnotation{note: note, mgr: n, method: m}
	must := func(err error) {
		if err != nil {
			panic(fmt.Errorf("%s: %w", basic, err))
		}
	}
	nargs := func(k int) {
		if len(note.Args) != k {
			must(fmt.Errorf("%s expects %d argument(s)", note.Name, k))
		}
	}
	fact := func(d defs.Direction, v defs.Value) factAnnotation {
		return factAnnotation{basic, d, v}
	}

	switch note.Name {
	case id_NOTNULL:
		nargs(1)
		i, err := paramOf(note.Args[0])
		must(err)
		return AnnNotNull{fact(defs.InDir(i, defs.NotNullParam), defs.NotNull)}
	case id_NULLABLE:
		nargs(1)
		i, err := paramOf(note.Args[0])
		must(err)
		return AnnNullable{fact(defs.InDir(i, defs.NullableParam), defs.Null)}
	case id_OUT:
		nargs(1)
		v, err := valueOf(note.Args[0])
		must(err)
		return AnnOut{fact(defs.OutDir(), v)}
	case id_NULLABLE_OUT:
		nargs(0)
		return AnnNullableOut{fact(defs.NullableOutDir(), defs.Null)}
	case id_CONTRACT:
		nargs(3)
		i, err := paramOf(note.Args[0])
		must(err)
		v, err := valueOf(note.Args[1])
		must(err)
		r, err := valueOf(note.Args[2])
		must(err)
		return AnnContract{fact(defs.InOutDir(i, v), r)}
	case id_PURE:
		nargs(0)
		return AnnPure{effectAnnotation{basic, L.NewEffectSet()}}
	case id_IMPURE:
		nargs(0)
		return AnnImpure{effectAnnotation{basic, L.TopEffect()}}
	case id_MUTATES:
		qs := L.NewEffectSet()
		for _, arg := range note.Args {
			if id, ok := arg.(expect.Identifier); ok && id == "this" {
				qs = qs.Add(L.ThisChangeQuantum)
				continue
			}
			i, err := paramOf(arg)
			must(err)
			qs = qs.Add(L.ParamChangeQuantum(i))
		}
		return AnnMutates{effectAnnotation{basic, qs}}
	case id_FALSE_NEGATIVE:
		return AnnFalseNegative{basic}
	}

	must(fmt.Errorf("unknown annotation %q", note.Name))
	return nil
}
