// Package known provides facts about library methods that are never
// analyzed. They are injected into the solvers as solved keys.
package known

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cs-au-dk/contra/analysis/defs"
	L "github.com/cs-au-dk/contra/analysis/lattice"
)

//go:embed known.yaml
var builtin []byte

var ErrBadEntry = errors.New("bad known-facts entry")

type entry struct {
	Method string `yaml:"method"`
	Final  bool   `yaml:"final"`
	// Fact values are kept as nodes so that a plain Null is read as the
	// value name and not resolved to the YAML null.
	Facts   map[string]yaml.Node `yaml:"facts"`
	Effects *[]string            `yaml:"effects"`
	Returns string               `yaml:"returns"`
}

// Fact is a solved nullity or contract key.
type Fact struct {
	Key   defs.Key
	Value defs.Value
}

// Effect is a solved purity key.
type Effect struct {
	Key     defs.Key
	Effects L.Effects
}

// Table holds the facts of a set of library methods.
type Table struct {
	Facts   []Fact
	Effects []Effect
}

// Builtin decodes the table shipped with the analysis.
func Builtin() Table {
	t, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Errorf("builtin known facts: %w", err))
	}
	return t
}

// Parse decodes a table in the format of the builtin one.
func Parse(r io.Reader) (Table, error) {
	var entries []entry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && err != io.EOF {
		return Table{}, fmt.Errorf("decoding known facts: %w", err)
	}

	t := Table{}
	for _, e := range entries {
		m, err := defs.ParseMethod(e.Method)
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrBadEntry, err)
		}
		stabilities := []bool{true}
		if e.Final {
			stabilities = append(stabilities, false)
		}

		for dir, node := range e.Facts {
			d, err := defs.ParseDirection(dir)
			if err != nil {
				return Table{}, fmt.Errorf("%w: %v: %v", ErrBadEntry, m, err)
			}
			v, err := factValue(node)
			if err != nil {
				return Table{}, fmt.Errorf("%w: %v: %v", ErrBadEntry, m, err)
			}
			for _, stable := range stabilities {
				t.Facts = append(t.Facts, Fact{defs.MkKey(m, d, stable), v})
			}
		}

		if e.Effects == nil {
			continue
		}
		eff, err := parseEffects(*e.Effects, e.Returns)
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v: %v", ErrBadEntry, m, err)
		}
		for _, stable := range stabilities {
			t.Effects = append(t.Effects, Effect{defs.MkKey(m, defs.PureDir(), stable), eff})
		}
	}
	return t, nil
}

func factValue(n yaml.Node) (defs.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return defs.Bot, fmt.Errorf("line %d: value is not a scalar", n.Line)
	}
	return defs.ParseValue(n.Value)
}

func parseEffects(effects []string, returns string) (L.Effects, error) {
	res := L.Effects{Quanta: L.NewEffectSet(), Returns: L.UnknownValue1}
	switch returns {
	case "", "unknown":
	case "local":
		res.Returns = L.LocalValue
	default:
		return res, fmt.Errorf("unknown provenance %q", returns)
	}

	for _, eff := range effects {
		switch {
		case eff == "this":
			res.Quanta = res.Quanta.Add(L.ThisChangeQuantum)
		case eff == "top":
			res.Quanta = L.TopEffect()
		case strings.HasPrefix(eff, "param:"):
			n, err := strconv.Atoi(strings.TrimPrefix(eff, "param:"))
			if err != nil || n < 0 {
				return res, fmt.Errorf("bad parameter in effect %q", eff)
			}
			res.Quanta = res.Quanta.Add(L.ParamChangeQuantum(n))
		default:
			return res, fmt.Errorf("unknown effect %q", eff)
		}
	}
	return res, nil
}
