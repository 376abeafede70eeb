package defs

import (
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/contra/utils"
)

// KeySet is a persistent set of keys. The zero value is the empty set.
// Updates return new sets and leave the receiver untouched, so a set may be
// shared freely between abstract values, states and products.
type KeySet struct {
	mp *immutable.Map[Key, struct{}]
}

var keyHasher = utils.HashableHasher[Key]()

func NewKeySet(keys ...Key) KeySet {
	s := KeySet{}
	for _, k := range keys {
		s = s.Add(k)
	}
	return s
}

func (s KeySet) Len() int {
	if s.mp == nil {
		return 0
	}
	return s.mp.Len()
}

func (s KeySet) Empty() bool {
	return s.Len() == 0
}

func (s KeySet) Has(k Key) bool {
	if s.mp == nil {
		return false
	}
	_, ok := s.mp.Get(k)
	return ok
}

func (s KeySet) Add(k Key) KeySet {
	if s.mp == nil {
		s.mp = immutable.NewMap[Key, struct{}](keyHasher)
	} else if s.Has(k) {
		return s
	}
	return KeySet{s.mp.Set(k, struct{}{})}
}

func (s KeySet) Remove(k Key) KeySet {
	if !s.Has(k) {
		return s
	}
	return KeySet{s.mp.Delete(k)}
}

func (s KeySet) ForEach(do func(Key)) {
	if s.mp == nil {
		return
	}
	for iter := s.mp.Iterator(); !iter.Done(); {
		k, _, _ := iter.Next()
		do(k)
	}
}

// Union returns s ∪ o. The larger set is extended with the smaller one.
func (s KeySet) Union(o KeySet) KeySet {
	if s.Len() < o.Len() {
		s, o = o, s
	}
	o.ForEach(func(k Key) {
		s = s.Add(k)
	})
	return s
}

// SubsetOf checks s ⊆ o.
func (s KeySet) SubsetOf(o KeySet) bool {
	if s.Len() > o.Len() {
		return false
	}
	res := true
	s.ForEach(func(k Key) {
		if res && !o.Has(k) {
			res = false
		}
	})
	return res
}

func (s KeySet) Equal(o KeySet) bool {
	return s.Len() == o.Len() && s.SubsetOf(o)
}

// Hash is independent of iteration order.
func (s KeySet) Hash() uint32 {
	var sum, xor uint32
	s.ForEach(func(k Key) {
		h := k.Hash()
		sum += h
		xor ^= h
	})
	return utils.HashCombine(uint32(s.Len()), sum, xor)
}

// Keys lists the members in a deterministic order.
func (s KeySet) Keys() []Key {
	keys := make([]Key, 0, s.Len())
	s.ForEach(func(k Key) {
		keys = append(keys, k)
	})
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	return keys
}

func (s KeySet) String() string {
	strs := []string{}
	for _, k := range s.Keys() {
		strs = append(strs, k.String())
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
