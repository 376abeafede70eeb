package testutil

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/expect"

	"github.com/cs-au-dk/contra/analysis/defs"
)

type NotesManager struct {
	anns  map[*expect.Note]Annotation
	notes []*expect.Note

	// Notes sharing a line, excluding the note itself.
	related map[*expect.Note]map[*expect.Note]struct{}
	loadRes LoadResult
}

type line struct {
	file string
	line int
}

// MakeNotesManager extracts the notes of the main package of a program
// loaded with LoadSource and attaches each to the function declared on its
// line.
func MakeNotesManager(t *testing.T, loadRes LoadResult) (n NotesManager) {
	fset := loadRes.SSA.Fset
	n.loadRes = loadRes
	n.anns = make(map[*expect.Note]Annotation)
	n.related = make(map[*expect.Note]map[*expect.Note]struct{})

	for _, file := range loadRes.MainPkg.Syntax {
		notes, err := expect.ExtractGo(fset, file)
		if err != nil {
			t.Fatal(err)
		}
		n.notes = append(n.notes, notes...)
	}

	byLine := map[line][]*expect.Note{}
	for _, note := range n.notes {
		pos := fset.Position(note.Pos)
		l := line{pos.Filename, pos.Line}
		byLine[l] = append(byLine[l], note)
	}
	for _, note := range n.notes {
		pos := fset.Position(note.Pos)
		n.related[note] = map[*expect.Note]struct{}{}
		for _, other := range byLine[line{pos.Filename, pos.Line}] {
			if other != note {
				n.related[note][other] = struct{}{}
			}
		}
	}

	for _, note := range n.notes {
		m, ok := n.MethodForNote(note)
		if !ok {
			t.Fatalf("no function declared at %v for note %s", fset.Position(note.Pos), note.Name)
		}
		n.anns[note] = n.CreateAnnotation(note, m)
	}
	return
}

// MethodForNote finds the function whose declaration shares the line of
// the note.
func (n NotesManager) MethodForNote(note *expect.Note) (defs.Method, bool) {
	fset := n.loadRes.SSA.Fset
	npos := fset.Position(note.Pos)

	for m, fn := range n.loadRes.Funcs {
		if fn.Pos() == token.NoPos {
			continue
		}
		pos := fset.Position(fn.Pos())
		if pos.Filename == npos.Filename && pos.Line == npos.Line && pos.Column <= npos.Column {
			return m, true
		}
	}
	return defs.Method{}, false
}

func (n NotesManager) ForEachAnnotation(do func(a Annotation)) {
	for _, note := range n.notes {
		do(n.anns[note])
	}
}

func (n NotesManager) AnnotationOf(note *expect.Note) Annotation {
	return n.anns[note]
}

func (n NotesManager) String() string {
	var b strings.Builder
	b.WriteString("Notes:\n")
	for _, note := range n.notes {
		fmt.Fprintf(&b, "  %v on %v\n", n.anns[note], n.anns[note].Method())
	}
	return b.String()
}

// CheckAll reports every annotation that disagrees with the solved facts.
// Annotations tagged as false negatives are expected to disagree.
func (n NotesManager) CheckAll(t *testing.T) {
	t.Helper()
	failures := []string{}
	n.ForEachAnnotation(func(a Annotation) {
		err := a.Check()
		switch {
		case a.FalseNegative() && err == nil:
			if _, tag := a.(AnnFalseNegative); !tag {
				failures = append(failures, fmt.Sprintf("%s: inferred although tagged as a false negative", a))
			}
		case !a.FalseNegative() && err != nil:
			failures = append(failures, err.Error())
		}
	})
	if len(failures) == 0 {
		return
	}
	t.Log(n)
	sort.Strings(failures)
	for _, f := range failures {
		t.Error(f)
	}
}
