package defs

import (
	"fmt"
	"strings"
)

// Value is the vocabulary of nullity and contract facts.
//
// Bot means that nothing is known yet (or that the program point is
// unreachable), Top means that any value is possible. The four values in
// between are pairwise incomparable.
type Value uint8

const (
	Bot Value = iota
	NotNull
	Null
	True
	False
	Top
)

var valueNames = [...]string{
	Bot:     "Bot",
	NotNull: "NotNull",
	Null:    "Null",
	True:    "True",
	False:   "False",
	Top:     "Top",
}

func (v Value) String() string {
	if int(v) < len(valueNames) {
		return valueNames[v]
	}
	return fmt.Sprintf("Value(%d)", uint8(v))
}

// Negate flips boolean facts and leaves every other value untouched.
func (v Value) Negate() Value {
	switch v {
	case True:
		return False
	case False:
		return True
	}
	return v
}

// IsBoolean holds for True and False.
func (v Value) IsBoolean() bool {
	return v == True || v == False
}

// ParseValue is the inverse of Value.String. Matching is case insensitive.
func ParseValue(s string) (Value, error) {
	for v, name := range valueNames {
		if strings.EqualFold(name, s) {
			return Value(v), nil
		}
	}
	return Bot, fmt.Errorf("unknown value %q", s)
}
