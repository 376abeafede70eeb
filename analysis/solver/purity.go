package solver

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/cs-au-dk/contra/analysis/defs"
	L "github.com/cs-au-dk/contra/analysis/lattice"
)

// unresolved is what opaque, unstable and cyclic dependencies resolve to.
var unresolved = L.Effects{Quanta: L.TopEffect(), Returns: L.UnknownValue1}

// PuritySolver resolves effect equations into effect sets. Call effects are
// translated into the caller's terms as soon as the callee is resolved.
type PuritySolver struct {
	store
	input map[ckey]L.Effects
	known map[ckey]L.Effects

	solved     map[ckey]L.Effects
	pending    map[ckey]L.Effects
	dependents map[ckey]map[ckey]struct{}
	queue      []ckey

	Stats Stats
}

func NewPuritySolver() *PuritySolver {
	return &PuritySolver{
		store: newStore(),
		input: make(map[ckey]L.Effects),
		known: make(map[ckey]L.Effects),
	}
}

// Add registers effect equations. Duplicates are joined: their quanta are
// united and the provenance of the returned value is joined.
func (s *PuritySolver) Add(eqs ...L.EffectEquation) {
	for _, eq := range eqs {
		k := s.encode(eq.Key)
		if prev, ok := s.input[k]; ok {
			s.input[k] = L.Effects{
				Quanta:  prev.Quanta.Union(eq.Effects.Quanta),
				Returns: L.JoinData(prev.Returns, eq.Effects.Returns),
			}
		} else {
			s.input[k] = eq.Effects
		}
	}
}

// AddSolved registers effects known up front. They must not have
// dependencies.
func (s *PuritySolver) AddSolved(k defs.Key, e L.Effects) {
	s.known[s.encode(k)] = e
}

func (s *PuritySolver) defined(k ckey) bool {
	_, eq := s.input[k]
	_, kn := s.known[k]
	return eq || kn
}

func (s *PuritySolver) resolve(k ckey, e L.Effects) {
	s.solved[k] = e
	s.queue = append(s.queue, k)
}

// Solve runs the fixpoint and returns the effects of every resolved key.
func (s *PuritySolver) Solve() map[defs.Key]L.EffectSet {
	s.solved = make(map[ckey]L.Effects, len(s.input)+len(s.known))
	s.pending = make(map[ckey]L.Effects)
	s.dependents = make(map[ckey]map[ckey]struct{})
	s.Stats.Equations, s.Stats.Known = len(s.input), len(s.known)

	for k, e := range s.known {
		s.resolve(k, e)
	}
	keys := make([]ckey, 0, len(s.input))
	for k := range s.input {
		if _, ok := s.known[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		s.settle(k, s.input[k])
	}

	orphans := []ckey{}
	for d := range s.dependents {
		if s.defined(d) || (!d.stable() && s.defined(d.flip())) {
			continue
		}
		orphans = append(orphans, d)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, d := range orphans {
		s.Stats.Orphans++
		s.resolve(d, unresolved)
	}

	for len(s.queue) > 0 {
		k := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]

		s.propagate(k)
		if k.stable() && !s.defined(k.flip()) {
			if _, done := s.solved[k.flip()]; !done {
				s.solved[k.flip()] = unresolved
				s.propagate(k.flip())
			}
		}
	}

	s.finalizeCycles()

	res := make(map[defs.Key]L.EffectSet, len(s.solved))
	for k, e := range s.solved {
		res[s.decode(k)] = e.Quanta
	}
	return res
}

// settle substitutes every dependency of e that is already solved. If none
// remain, k is resolved, otherwise it waits on the rest.
func (s *PuritySolver) settle(k ckey, e L.Effects) {
	for {
		if e.Quanta.IsTop() {
			delete(s.pending, k)
			s.resolve(k, L.Effects{Quanta: L.TopEffect(), Returns: e.Returns})
			return
		}
		deps := e.Dependencies().Keys()
		waiting := deps[:0]
		for _, d := range deps {
			if sol, ok := s.solved[s.encode(d)]; ok {
				s.Stats.Substitutions++
				e = substituteEffects(e, d, sol)
			} else {
				waiting = append(waiting, d)
			}
		}
		if len(waiting) == 0 {
			if e.Dependencies().Empty() {
				delete(s.pending, k)
				s.resolve(k, e)
				return
			}
			// Substitution introduced new dependencies.
			continue
		}
		s.pending[k] = e
		for _, d := range waiting {
			c := s.encode(d)
			if s.dependents[c] == nil {
				s.dependents[c] = make(map[ckey]struct{})
			}
			s.dependents[c][k] = struct{}{}
		}
		return
	}
}

func (s *PuritySolver) propagate(k ckey) {
	deps := s.dependents[k]
	if len(deps) == 0 {
		return
	}
	delete(s.dependents, k)

	eqs := make([]ckey, 0, len(deps))
	for e := range deps {
		eqs = append(eqs, e)
	}
	sort.Slice(eqs, func(i, j int) bool { return eqs[i] < eqs[j] })
	for _, e := range eqs {
		if eff, ok := s.pending[e]; ok {
			s.settle(e, eff)
		}
	}
}

// substituteEffects rewrites every quantum of e that depends on k, given
// that k resolved to sol.
func substituteEffects(e L.Effects, k defs.Key, sol L.Effects) L.Effects {
	res := L.Effects{Returns: e.Returns}
	if e.Returns.Kind == L.ReturnData && e.Returns.Key == k {
		if sol.Returns == L.LocalValue {
			res.Returns = L.LocalValue
		} else {
			res.Returns = L.UnknownValue1
		}
	}

	quanta := L.NewEffectSet()
	e.Quanta.ForEach(func(q L.EffectQuantum) {
		if quanta.IsTop() {
			return
		}
		if dep, ok := q.Dependency(); !ok || dep != k {
			quanta = quanta.Add(q)
			return
		}
		switch q.Kind {
		case L.FieldReadQuantum:
			if sol.Quanta.IsTop() {
				quanta = L.TopEffect()
			}
		case L.ReturnChangeQuantum:
			if sol.Returns != L.LocalValue {
				quanta = L.TopEffect()
			}
		case L.CallQuantum:
			quanta = quanta.Union(callEffects(q, sol.Quanta))
		}
	})
	res.Quanta = quanta
	return res
}

// callEffects translates the resolved effects of a callee into effects of
// the caller at the call site q.
func callEffects(q L.EffectQuantum, callee L.EffectSet) L.EffectSet {
	if callee.IsTop() {
		return L.TopEffect()
	}
	res := L.NewEffectSet()
	callee.ForEach(func(cq L.EffectQuantum) {
		arg := -1
		switch cq.Kind {
		case L.ThisChange:
			if !q.Static {
				arg = 0
			}
		case L.ParamChange:
			arg = cq.Param
			if !q.Static {
				arg++
			}
		}
		if arg < 0 || arg >= len(q.Args) {
			res = L.TopEffect()
			return
		}
		res = res.Union(mutation(q.Args[arg]))
	})
	return res
}

// mutation is the effect of mutating a value of the given provenance.
func mutation(d L.DataValue) L.EffectSet {
	switch d.Kind {
	case L.ThisData, L.OwnedData:
		return L.NewEffectSet(L.ThisChangeQuantum)
	case L.ParamData:
		return L.NewEffectSet(L.ParamChangeQuantum(d.Param))
	case L.LocalData:
		return L.NewEffectSet()
	case L.ReturnData:
		return L.NewEffectSet(L.ReturnChange(d.Key))
	}
	return L.TopEffect()
}

// finalizeCycles makes every remaining equation TopEffect. Recursive calls
// end up here.
func (s *PuritySolver) finalizeCycles() {
	if len(s.pending) == 0 {
		return
	}
	keys := make([]ckey, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	s.Stats.Clusters = cluster(keys, func(k ckey) []ckey {
		deps := []ckey{}
		s.pending[k].Dependencies().ForEach(func(d defs.Key) {
			deps = append(deps, s.encode(d))
		})
		return deps
	}, func(size int, rep ckey) {
		log.Debugf("purity solver: %d recursive equations around %v resolved as impure", size, s.decode(rep))
	})

	for _, k := range keys {
		s.Stats.Cyclic++
		s.solved[k] = L.Effects{Quanta: L.TopEffect(), Returns: s.pending[k].Returns}
		delete(s.pending, k)
	}
}
