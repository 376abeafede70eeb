package defs

import (
	"strings"

	"github.com/cs-au-dk/contra/utils"
)

// Key identifies one inferable fact.
//
// Stable keys describe call sites that cannot be overridden (static, private,
// final or constructor calls); facts about them can be trusted as is. Negated
// keys only ever occur as dependencies inside products: resolving one yields
// the negation of the fact of its base key.
type Key struct {
	Method  Method
	Dir     Direction
	Stable  bool
	Negated bool
}

func MkKey(m Method, d Direction, stable bool) Key {
	return Key{Method: m, Dir: d, Stable: stable}
}

// Base strips the negation.
func (k Key) Base() Key {
	k.Negated = false
	return k
}

func (k Key) Negate() Key {
	k.Negated = !k.Negated
	return k
}

func (k Key) MkStable() Key {
	k.Stable = true
	return k
}

func (k Key) MkUnstable() Key {
	k.Stable = false
	return k
}

// WithDir keeps method and stability but replaces the direction.
func (k Key) WithDir(d Direction) Key {
	k.Dir = d
	k.Negated = false
	return k
}

func (k Key) Hash() uint32 {
	var flags uint32
	if k.Stable {
		flags |= 1
	}
	if k.Negated {
		flags |= 2
	}
	return utils.HashCombine(k.Method.Hash(), k.Dir.Code(), flags)
}

func (k Key) Equal(o Key) bool {
	return k == o
}

func (k Key) String() string {
	var sb strings.Builder
	if k.Negated {
		sb.WriteString("!")
	}
	sb.WriteString(k.Method.String())
	sb.WriteString(" ")
	sb.WriteString(k.Dir.String())
	if !k.Stable {
		sb.WriteString(" (unstable)")
	}
	return sb.String()
}

// Less orders keys by their textual form. Printers use it.
func (k Key) Less(o Key) bool {
	return k.String() < o.String()
}
