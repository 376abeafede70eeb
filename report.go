package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/utils"
)

// report prints the stable facts of every method of a program.
type report struct {
	w        io.Writer
	colorize bool
}

func (r report) paint(c color.Attribute) func(...interface{}) string {
	if !r.colorize {
		return fmt.Sprint
	}
	return utils.CanColorize(color.New(c).SprintFunc())
}

// effects renders an effect set without the colors of its String method.
func effects(e L.EffectSet) string {
	switch {
	case e.IsTop():
		return "TopEffect"
	case e.IsPure():
		return "Pure"
	}
	s := "{"
	for i, q := range e.Quanta() {
		if i > 0 {
			s += ", "
		}
		s += q.String()
	}
	return s + "}"
}

// print lists the methods sorted by name. Directions keep the order in
// which they are inferred and unsolved ones are left out.
func (r report) print(prog *ir.Program, sol solution) {
	methodC, dirC, valueC := r.paint(color.FgYellow), r.paint(color.FgHiBlue), r.paint(color.FgCyan)

	bodies := prog.Bodies()
	sort.Slice(bodies, func(i, j int) bool {
		return bodies[i].Method.String() < bodies[j].Method.String()
	})

	for _, b := range bodies {
		if !b.HasCode() {
			continue
		}

		fmt.Fprintln(r.w, methodC(b.Method.String()))
		for _, d := range absint.Directions(b) {
			if v, ok := sol.facts[defs.MkKey(b.Method, d, true)]; ok {
				fmt.Fprintf(r.w, "  %s: %s\n", dirC(d.String()), valueC(v.String()))
			}
		}
		if e, ok := sol.effects[defs.MkKey(b.Method, defs.PureDir(), true)]; ok {
			fmt.Fprintf(r.w, "  %s: %s\n", dirC("Pure"), valueC(effects(e)))
		}
	}
}

// printEquations lists the raw equations, sorted by key.
func printEquations(w io.Writer, eqs equations) {
	lines := utils.SortedStrings(eqs.nullity)
	lines = append(lines, utils.SortedStrings(eqs.purity)...)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
