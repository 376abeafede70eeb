package solver

import (
	"sort"

	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/lattice"
)

// ckey is the compact form of a key:
//
//	bits 32-63  method id
//	bits 2-31   direction code
//	bit  1      stable
//	bit  0      negated
type ckey uint64

func (k ckey) negated() bool {
	return k&1 != 0
}

func (k ckey) stable() bool {
	return k&2 != 0
}

// base clears the negation bit.
func (k ckey) base() ckey {
	return k &^ 1
}

// flip switches between the stable and the unstable variant.
func (k ckey) flip() ckey {
	return k ^ 2
}

func (k ckey) dir() defs.Direction {
	return defs.DirectionFromCode(uint32(k>>2) & (1<<30 - 1))
}

// store interns methods so that keys and products are plain integers.
type store struct {
	ids     map[defs.Method]uint32
	methods []defs.Method
}

func newStore() store {
	return store{ids: make(map[defs.Method]uint32)}
}

func (s *store) encode(k defs.Key) ckey {
	id, ok := s.ids[k.Method]
	if !ok {
		id = uint32(len(s.methods))
		s.ids[k.Method] = id
		s.methods = append(s.methods, k.Method)
	}
	c := ckey(id)<<32 | ckey(k.Dir.Code())<<2
	if k.Stable {
		c |= 2
	}
	if k.Negated {
		c |= 1
	}
	return c
}

func (s *store) decode(c ckey) defs.Key {
	return defs.Key{
		Method:  s.methods[c>>32],
		Dir:     c.dir(),
		Stable:  c.stable(),
		Negated: c.negated(),
	}
}

// cproduct is the compact form of a product. Keys are sorted.
type cproduct struct {
	value defs.Value
	keys  []ckey
}

func (s *store) encodeResult(r lattice.Result) []cproduct {
	p, ok := r.(lattice.Pending)
	if !ok {
		return nil
	}
	sum := make([]cproduct, 0, len(p.Sum))
	for _, prod := range p.Sum {
		keys := make([]ckey, 0, prod.Keys.Len())
		prod.Keys.ForEach(func(k defs.Key) {
			keys = append(keys, s.encode(k))
		})
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		sum = append(sum, cproduct{prod.Value, keys})
	}
	return sum
}

func (s *store) decodeSum(sum []cproduct) []lattice.Product {
	prods := make([]lattice.Product, 0, len(sum))
	for _, p := range sum {
		keys := defs.KeySet{}
		for _, k := range p.keys {
			keys = keys.Add(s.decode(k))
		}
		prods = append(prods, lattice.Product{Value: p.value, Keys: keys})
	}
	return prods
}

// dependencies lists the distinct base keys mentioned by a sum.
func dependencies(sum []cproduct) []ckey {
	seen := map[ckey]bool{}
	deps := []ckey{}
	for _, p := range sum {
		for _, k := range p.keys {
			if b := k.base(); !seen[b] {
				seen[b] = true
				deps = append(deps, b)
			}
		}
	}
	return deps
}
