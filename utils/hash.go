package utils

import (
	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash/v2"
)

// HashableEq is implemented by values that are stored in persistent sets:
// fact keys and effect quanta.
type HashableEq[T any] interface {
	Hash() uint32
	Equal(T) bool
}

type methodHasher[T HashableEq[T]] struct{}

func (methodHasher[T]) Equal(a, b T) bool { return a.Equal(b) }
func (methodHasher[T]) Hash(a T) uint32   { return a.Hash() }

// HashableHasher adapts the Hash and Equal methods of T to an
// immutable.Hasher.
func HashableHasher[T HashableEq[T]]() immutable.Hasher[T] {
	return methodHasher[T]{}
}

func fold(h uint64) uint32 {
	return uint32(h ^ (h >> 32))
}

// HashStrings hashes a sequence of strings as one value. A zero byte
// separates the parts, so ("ab", "c") and ("a", "bc") hash apart.
func HashStrings(strs ...string) uint32 {
	d := xxhash.New()
	for _, s := range strs {
		d.WriteString(s)
		d.Write([]byte{0})
	}
	return fold(d.Sum64())
}

// HashCombine mixes hashes in order, boost::hash_combine style.
func HashCombine(hs ...uint32) (seed uint32) {
	for _, v := range hs {
		seed ^= v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}
	return
}
