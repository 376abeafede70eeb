package absint

import (
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/frame"
	"github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/utils"
)

// conf is a program point together with the abstract frame reaching it.
type conf struct {
	insn  int
	frame frame.Frame[Value]
}

func (c conf) widen() conf {
	w := conf{insn: c.insn, frame: c.frame.Copy()}
	for i, v := range w.frame.Locals {
		w.frame.Locals[i] = v.Widen()
	}
	for i, v := range w.frame.Stack {
		w.frame.Stack[i] = v.Widen()
	}
	return w
}

func (c conf) equiv(o conf) bool {
	if c.insn != o.insn || len(c.frame.Stack) != len(o.frame.Stack) ||
		len(c.frame.Locals) != len(o.frame.Locals) {
		return false
	}
	for i, v := range c.frame.Locals {
		if !v.Equiv(o.frame.Locals[i]) {
			return false
		}
	}
	for i, v := range c.frame.Stack {
		if !v.Equiv(o.frame.Stack[i]) {
			return false
		}
	}
	return true
}

func (c conf) hash() uint32 {
	hs := make([]uint32, 0, 2+len(c.frame.Locals)+len(c.frame.Stack))
	hs = append(hs, uint32(c.insn), uint32(len(c.frame.Stack)))
	for _, v := range c.frame.Locals {
		hs = append(hs, v.Hash())
	}
	for _, v := range c.frame.Stack {
		hs = append(hs, v.Hash())
	}
	return utils.HashCombine(hs...)
}

// assumption records the outcome of a branch on a boolean call result: the
// call described by keys returned value.
type assumption struct {
	keys  defs.KeySet
	value defs.Value
}

func (a *assumption) equal(o *assumption) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.value == o.value && a.keys.Equal(o.keys)
}

func (a *assumption) hash() uint32 {
	if a == nil {
		return 0
	}
	return utils.HashCombine(uint32(a.value), a.keys.Hash())
}

// product expresses returning the boolean constant res under the
// assumption. Returning the assumed value holds when the call does;
// returning its negation holds when the negated call does.
func (a *assumption) product(res defs.Value) lattice.Result {
	keys := a.keys
	if res != a.value {
		keys = defs.KeySet{}
		a.keys.ForEach(func(k defs.Key) {
			keys = keys.Add(k.Negate())
		})
	}
	return lattice.Pending{Sum: []lattice.Product{{Value: res, Keys: keys}}}
}

// historyEntry is a widened configuration seen at a loop header.
type historyEntry struct {
	conf   conf
	taken  bool
	assume *assumption
}

func (h historyEntry) equiv(o historyEntry) bool {
	return h.taken == o.taken && h.assume.equal(o.assume) && h.conf.equiv(o.conf)
}

// state is the unit of the engine worklist.
type state struct {
	conf    conf
	history []historyEntry
	// taken is set once a branch on the parameter was specialized.
	taken bool
	// pathKeys are the In(NotNull) keys of callees that received the
	// parameter on this path.
	pathKeys defs.KeySet
	assume   *assumption
}

// stateHasher identifies states that are interchangeable for
// memoization. Path keys are compared separately by subsumption.
type stateHasher struct{}

func (stateHasher) Hash(s *state) uint32 {
	return utils.HashCombine(s.conf.hash(), boolHash(s.taken), s.assume.hash(), uint32(len(s.history)))
}

func (stateHasher) Equal(a, b *state) bool {
	if a.taken != b.taken || !a.assume.equal(b.assume) || !a.conf.equiv(b.conf) ||
		len(a.history) != len(b.history) {
		return false
	}
	for i, h := range a.history {
		if !h.equiv(b.history[i]) {
			return false
		}
	}
	return true
}

func boolHash(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
