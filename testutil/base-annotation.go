package testutil

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/expect"

	"github.com/cs-au-dk/contra/analysis/defs"
)

// basicAnnotation is what every annotation knows: its note, the method
// declared on its line and the manager holding the notes around it.
type basicAnnotation struct {
	note   *expect.Note
	mgr    NotesManager
	method defs.Method
}

func (a basicAnnotation) Note() *expect.Note    { return a.note }
func (a basicAnnotation) Manager() NotesManager { return a.mgr }
func (a basicAnnotation) Method() defs.Method   { return a.method }

// Related lists the annotations of the other notes on the same line, in
// source order.
func (a basicAnnotation) Related() []Annotation {
	var as []Annotation
	for _, n := range a.mgr.notes {
		if _, ok := a.mgr.related[a.note][n]; ok {
			as = append(as, a.mgr.AnnotationOf(n))
		}
	}
	return as
}

// FalseNegative holds when a falseNegative tag shares the line.
func (a basicAnnotation) FalseNegative() bool {
	for _, r := range a.Related() {
		if _, tag := r.(AnnFalseNegative); tag {
			return true
		}
	}
	return false
}

// Check holds vacuously for tags.
func (basicAnnotation) Check() error {
	return nil
}

func (a basicAnnotation) String() string {
	args := make([]string, len(a.note.Args))
	for i, arg := range a.note.Args {
		args[i] = fmt.Sprint(arg)
	}
	return fmt.Sprintf("//@ %s(%s) at %v", a.note.Name, strings.Join(args, ", "),
		a.mgr.loadRes.SSA.Fset.Position(a.note.Pos))
}
