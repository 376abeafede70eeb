package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/utils"
	i "github.com/cs-au-dk/contra/utils/indenter"
)

// DataKind classifies where a value came from, as far as the purity analysis
// cares.
type DataKind uint8

const (
	// ThisData is the receiver.
	ThisData DataKind = iota
	// LocalData was allocated by the method and has not escaped.
	LocalData
	// ParamData is parameter Param.
	ParamData
	// OwnedData is reached through an owned field of the receiver.
	OwnedData
	// UnknownData1 and UnknownData2 are values of unknown provenance,
	// occupying one or two stack slots.
	UnknownData1
	UnknownData2
	// ReturnData is the result of the call Key.
	ReturnData
)

// DataValue is a provenance-family abstract value.
type DataValue struct {
	Kind  DataKind
	Param int
	// Key names the callee (Pure direction) for ReturnData.
	Key defs.Key
}

var (
	ThisValue     = DataValue{Kind: ThisData}
	LocalValue    = DataValue{Kind: LocalData}
	OwnedValue    = DataValue{Kind: OwnedData}
	UnknownValue1 = DataValue{Kind: UnknownData1}
	UnknownValue2 = DataValue{Kind: UnknownData2}
)

func ParamValue(n int) DataValue {
	return DataValue{Kind: ParamData, Param: n}
}

func ReturnValue(k defs.Key) DataValue {
	return DataValue{Kind: ReturnData, Key: k}
}

// Size is the number of slots the value occupies.
func (d DataValue) Size() int {
	if d.Kind == UnknownData2 {
		return 2
	}
	return 1
}

// Unknown is the provenance of values nothing is known about.
func (d DataValue) Unknown() bool {
	return d.Kind == UnknownData1 || d.Kind == UnknownData2
}

func (d DataValue) Equal(o DataValue) bool {
	return d == o
}

func (d DataValue) Hash() uint32 {
	switch d.Kind {
	case ParamData:
		return utils.HashCombine(uint32(d.Kind), uint32(d.Param))
	case ReturnData:
		return utils.HashCombine(uint32(d.Kind), d.Key.Hash())
	}
	return uint32(d.Kind)
}

func (d DataValue) String() string {
	switch d.Kind {
	case ThisData:
		return "This"
	case LocalData:
		return "Local"
	case ParamData:
		return fmt.Sprintf("Param(%d)", d.Param)
	case OwnedData:
		return "Owned"
	case UnknownData1, UnknownData2:
		return "Unknown"
	case ReturnData:
		return "Returned(" + d.Key.Method.String() + ")"
	}
	return fmt.Sprintf("DataValue(%d)", d.Kind)
}

// JoinData merges the provenance of one slot arriving along two paths.
func JoinData(a, b DataValue) DataValue {
	switch {
	case a == b:
		return a
	case a.Size() == 2 || b.Size() == 2:
		return UnknownValue2
	}
	return UnknownValue1
}

// QuantumKind is the discriminant of EffectQuantum.
type QuantumKind uint8

const (
	ThisChange QuantumKind = iota
	ParamChange
	CallQuantum
	FieldReadQuantum
	ReturnChangeQuantum
)

// EffectQuantum is one atomic side effect.
//
//	ThisChange              the receiver (or an object it owns) is mutated
//	ParamChange(Param)      parameter Param is mutated
//	CallQuantum(Key, Args)  the effects of calling Key with arguments of the given provenance
//	FieldReadQuantum(Key)   a field is read; impure only if the field is volatile
//	ReturnChangeQuantum(Key) the object returned by the call Key is mutated
type EffectQuantum struct {
	Kind   QuantumKind
	Param  int
	Key    defs.Key
	Args   []DataValue
	Static bool
}

var ThisChangeQuantum = EffectQuantum{Kind: ThisChange}

func ParamChangeQuantum(n int) EffectQuantum {
	return EffectQuantum{Kind: ParamChange, Param: n}
}

// Args includes the receiver for instance calls.
func CallEffect(k defs.Key, args []DataValue, static bool) EffectQuantum {
	return EffectQuantum{Kind: CallQuantum, Key: k, Args: args, Static: static}
}

func FieldRead(k defs.Key) EffectQuantum {
	return EffectQuantum{Kind: FieldReadQuantum, Key: k}
}

func ReturnChange(k defs.Key) EffectQuantum {
	return EffectQuantum{Kind: ReturnChangeQuantum, Key: k}
}

// Dependency is the key whose solution this quantum waits for, if any.
func (q EffectQuantum) Dependency() (defs.Key, bool) {
	switch q.Kind {
	case CallQuantum, FieldReadQuantum, ReturnChangeQuantum:
		return q.Key, true
	}
	return defs.Key{}, false
}

func (q EffectQuantum) Equal(o EffectQuantum) bool {
	if q.Kind != o.Kind || q.Param != o.Param || q.Key != o.Key ||
		q.Static != o.Static || len(q.Args) != len(o.Args) {
		return false
	}
	for i, a := range q.Args {
		if a != o.Args[i] {
			return false
		}
	}
	return true
}

func (q EffectQuantum) Hash() uint32 {
	hs := []uint32{uint32(q.Kind), uint32(q.Param)}
	if _, ok := q.Dependency(); ok {
		hs = append(hs, q.Key.Hash())
	}
	for _, a := range q.Args {
		hs = append(hs, a.Hash())
	}
	if q.Static {
		hs = append(hs, 1)
	}
	return utils.HashCombine(hs...)
}

func (q EffectQuantum) String() string {
	switch q.Kind {
	case ThisChange:
		return "ThisChange"
	case ParamChange:
		return fmt.Sprintf("ParamChange(%d)", q.Param)
	case CallQuantum:
		args := make([]string, 0, len(q.Args))
		for _, a := range q.Args {
			args = append(args, a.String())
		}
		call := "Call"
		if q.Static {
			call = "StaticCall"
		}
		return fmt.Sprintf("%s(%s, [%s])", call, q.Key.Method, strings.Join(args, ", "))
	case FieldReadQuantum:
		return "FieldRead(" + q.Key.Method.String() + ")"
	case ReturnChangeQuantum:
		return "ReturnChange(" + q.Key.Method.String() + ")"
	}
	return fmt.Sprintf("EffectQuantum(%d)", q.Kind)
}

// EffectSet is a set of effect quanta, or the absorbing TopEffect. The zero
// value is the empty (pure) set.
type EffectSet struct {
	top bool
	mp  *immutable.Map[EffectQuantum, struct{}]
}

var quantumHasher = utils.HashableHasher[EffectQuantum]()

// TopEffect has arbitrary side effects.
func TopEffect() EffectSet {
	return EffectSet{top: true}
}

func NewEffectSet(qs ...EffectQuantum) EffectSet {
	s := EffectSet{}
	for _, q := range qs {
		s = s.Add(q)
	}
	return s
}

func (s EffectSet) IsTop() bool {
	return s.top
}

// IsPure holds for the empty set.
func (s EffectSet) IsPure() bool {
	return !s.top && s.Len() == 0
}

func (s EffectSet) Len() int {
	if s.mp == nil {
		return 0
	}
	return s.mp.Len()
}

func (s EffectSet) Has(q EffectQuantum) bool {
	if s.mp == nil {
		return false
	}
	_, ok := s.mp.Get(q)
	return ok
}

func (s EffectSet) Add(q EffectQuantum) EffectSet {
	switch {
	case s.top:
		return s
	case s.mp == nil:
		s.mp = immutable.NewMap[EffectQuantum, struct{}](quantumHasher)
	case s.Has(q):
		return s
	}
	return EffectSet{mp: s.mp.Set(q, struct{}{})}
}

func (s EffectSet) Remove(q EffectQuantum) EffectSet {
	if !s.Has(q) {
		return s
	}
	return EffectSet{mp: s.mp.Delete(q)}
}

func (s EffectSet) Union(o EffectSet) EffectSet {
	switch {
	case s.top || o.top:
		return TopEffect()
	case s.Len() < o.Len():
		s, o = o, s
	}
	o.ForEach(func(q EffectQuantum) {
		s = s.Add(q)
	})
	return s
}

func (s EffectSet) ForEach(do func(EffectQuantum)) {
	if s.mp == nil {
		return
	}
	for iter := s.mp.Iterator(); !iter.Done(); {
		q, _, _ := iter.Next()
		do(q)
	}
}

func (s EffectSet) Equal(o EffectSet) bool {
	if s.top || o.top {
		return s.top == o.top
	}
	if s.Len() != o.Len() {
		return false
	}
	res := true
	s.ForEach(func(q EffectQuantum) {
		res = res && o.Has(q)
	})
	return res
}

// Quanta lists the members in a deterministic order.
func (s EffectSet) Quanta() []EffectQuantum {
	qs := make([]EffectQuantum, 0, s.Len())
	s.ForEach(func(q EffectQuantum) {
		qs = append(qs, q)
	})
	sort.Slice(qs, func(i, j int) bool {
		return qs[i].String() < qs[j].String()
	})
	return qs
}

// Dependencies are the keys mentioned by call, field read and return change
// quanta.
func (s EffectSet) Dependencies() defs.KeySet {
	deps := defs.KeySet{}
	s.ForEach(func(q EffectQuantum) {
		if k, ok := q.Dependency(); ok {
			deps = deps.Add(k)
		}
	})
	return deps
}

func (s EffectSet) String() string {
	if s.top {
		return colorize.Effect("TopEffect")
	}
	if s.Len() == 0 {
		return colorize.Effect("Pure")
	}
	strs := []string{}
	for _, q := range s.Quanta() {
		strs = append(strs, colorize.Effect(q.String()))
	}
	if len(strs) == 1 {
		return "{" + strs[0] + "}"
	}
	return i.Indenter().Start("{").NestStringsSep(",", strs...).End("}")
}

// Effects summarizes one method body: its side effects and the provenance of
// the value it returns.
type Effects struct {
	Quanta  EffectSet
	Returns DataValue
}

func (e Effects) Dependencies() defs.KeySet {
	deps := e.Quanta.Dependencies()
	if e.Returns.Kind == ReturnData {
		deps = deps.Add(e.Returns.Key)
	}
	return deps
}

func (e Effects) Equal(o Effects) bool {
	return e.Returns == o.Returns && e.Quanta.Equal(o.Quanta)
}

func (e Effects) String() string {
	return e.Quanta.String() + " returns " + e.Returns.String()
}

// EffectEquation is the purity analogue of Equation.
type EffectEquation struct {
	Key     defs.Key
	Effects Effects
}

func (e EffectEquation) String() string {
	return colorize.Key(e.Key.String()) + " = " + e.Effects.String()
}
