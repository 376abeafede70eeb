package solver

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	uf "github.com/spakin/disjoint"

	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/lattice"
)

// Stats describes one solver run.
type Stats struct {
	Equations     int
	Known         int
	Substitutions int
	// Orphans counts dependencies that no equation or known fact defines.
	Orphans int
	// Cyclic counts equations finalized because their dependencies never
	// resolved, Clusters the strongly tied groups they formed.
	Cyclic, Clusters int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d equations, %d known, %d substitutions, %d orphans, %d cyclic in %d clusters",
		s.Equations, s.Known, s.Substitutions, s.Orphans, s.Cyclic, s.Clusters)
}

// Solver resolves nullity and contract equations into values.
//
// A solver is used once: add equations and known facts, call Solve, read
// the result.
type Solver struct {
	store
	input map[ckey]lattice.Result
	known map[ckey]defs.Value

	solved     map[ckey]defs.Value
	pending    map[ckey][]cproduct
	dependents map[ckey]map[ckey]struct{}
	queue      []ckey

	Stats Stats
}

func NewSolver() *Solver {
	return &Solver{
		store: newStore(),
		input: make(map[ckey]lattice.Result),
		known: make(map[ckey]defs.Value),
	}
}

// Add registers an equation. Equations for a key that is already present are
// joined with it.
func (s *Solver) Add(eqs ...lattice.Equation) {
	for _, eq := range eqs {
		k := s.encode(eq.Key.Base())
		if prev, ok := s.input[k]; ok {
			s.input[k] = eq.Lattice().JoinResults(prev, eq.Result)
		} else {
			s.input[k] = eq.Result
		}
	}
}

// AddSolved registers a fact that is known up front. Known facts take
// precedence over equations for the same key.
func (s *Solver) AddSolved(k defs.Key, v defs.Value) {
	s.known[s.encode(k.Base())] = v
}

func (s *Solver) latticeOf(k ckey) lattice.Lattice {
	return lattice.For(k.dir())
}

func (s *Solver) defined(k ckey) bool {
	_, eq := s.input[k]
	_, kn := s.known[k]
	return eq || kn
}

func (s *Solver) resolve(k ckey, v defs.Value) {
	s.solved[k] = v
	s.queue = append(s.queue, k)
}

// Solve runs the fixpoint and returns the value of every resolved key.
func (s *Solver) Solve() map[defs.Key]defs.Value {
	s.solved = make(map[ckey]defs.Value, len(s.input)+len(s.known))
	s.pending = make(map[ckey][]cproduct)
	s.dependents = make(map[ckey]map[ckey]struct{})
	s.Stats.Equations, s.Stats.Known = len(s.input), len(s.known)

	s.seed()

	for len(s.queue) > 0 {
		k := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		v := s.solved[k]

		s.propagate(k, v)
		// Callers that could not be devirtualized depend on the unstable
		// variant. Without an equation of its own it is only as good as the
		// lattice's unknown value.
		if k.stable() && !s.defined(k.flip()) {
			if _, done := s.solved[k.flip()]; !done {
				u := k.flip()
				s.solved[u] = s.latticeOf(u).Unknown
				s.propagate(u, s.solved[u])
			}
		}
	}

	s.finalizeCycles()

	res := make(map[defs.Key]defs.Value, len(s.solved))
	for k, v := range s.solved {
		res[s.decode(k)] = v
	}
	return res
}

func (s *Solver) seed() {
	// Sorted for deterministic logs and statistics.
	keys := make([]ckey, 0, len(s.input))
	for k := range s.input {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for k, v := range s.known {
		s.resolve(k, v)
	}

	for _, k := range keys {
		if _, ok := s.known[k]; ok {
			continue
		}
		switch r := s.input[k].(type) {
		case lattice.Final:
			s.resolve(k, r.Value)
		case lattice.Pending:
			sum := s.encodeResult(r)
			s.pending[k] = sum
			for _, d := range dependencies(sum) {
				if s.dependents[d] == nil {
					s.dependents[d] = make(map[ckey]struct{})
				}
				s.dependents[d][k] = struct{}{}
			}
		}
	}

	// Dependencies nobody defines. An unstable key whose stable variant is
	// defined is resolved when the stable one is.
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
		s.resolve(d, s.latticeOf(d).Unknown)
	}
}

// propagate substitutes the value of k into every pending equation that
// mentions it.
func (s *Solver) propagate(k ckey, v defs.Value) {
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
		sum, ok := s.pending[e]
		if !ok {
			continue
		}
		s.Stats.Substitutions++
		l := s.latticeOf(e)
		if final, v, rest := normalize(l, substitute(l, sum, k, v)); final {
			delete(s.pending, e)
			s.resolve(e, v)
		} else {
			s.pending[e] = rest
		}
	}
}

// substitute resolves k (and its negation) to v in every product.
func substitute(l lattice.Lattice, sum []cproduct, k ckey, v defs.Value) []cproduct {
	res := make([]cproduct, 0, len(sum))
	for _, p := range sum {
		keys := make([]ckey, 0, len(p.keys))
		value := p.value
		for _, pk := range p.keys {
			switch {
			case pk == k:
				value = l.Meet(value, v)
			case pk == k|1:
				value = l.Meet(value, v.Negate())
			default:
				keys = append(keys, pk)
			}
		}
		res = append(res, cproduct{value, keys})
	}
	return res
}

// normalize mirrors lattice.Normalize on compact products.
func normalize(l lattice.Lattice, sum []cproduct) (bool, defs.Value, []cproduct) {
	var (
		keyless  = l.Bot
		hasKeyed bool
		rest     = make([]cproduct, 0, len(sum))
	)
	for _, p := range sum {
		switch {
		case p.value == l.Bot || p.value == defs.Bot:
		case len(p.keys) == 0:
			keyless = l.Join(keyless, p.value)
		default:
			hasKeyed = true
			if !containsProduct(rest, p) {
				rest = append(rest, p)
			}
		}
	}
	if keyless == l.Top || !hasKeyed {
		return true, keyless, nil
	}
	if keyless != l.Bot {
		rest = append(rest, cproduct{value: keyless})
	}
	return false, l.Bot, rest
}

func containsProduct(sum []cproduct, p cproduct) bool {
outer:
	for _, q := range sum {
		if q.value != p.value || len(q.keys) != len(p.keys) {
			continue
		}
		for i := range q.keys {
			if q.keys[i] != p.keys[i] {
				continue outer
			}
		}
		return true
	}
	return false
}

// finalizeCycles resolves whatever is still pending to the lattice's unknown
// value. Those equations wait on each other.
func (s *Solver) finalizeCycles() {
	if len(s.pending) == 0 {
		return
	}

	keys := make([]ckey, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	s.Stats.Clusters = cluster(keys, func(k ckey) []ckey {
		return dependencies(s.pending[k])
	}, func(size int, rep ckey) {
		log.Debugf("solver: %d mutually dependent equations around %v resolved as unknown", size, s.decode(rep))
	})

	for _, k := range keys {
		if log.IsLevelEnabled(log.TraceLevel) {
			log.Tracef("solver: %v = %v", s.decode(k), lattice.Pending{Sum: s.decodeSum(s.pending[k])})
		}
		s.Stats.Cyclic++
		s.solved[k] = s.latticeOf(k).Unknown
		delete(s.pending, k)
	}
}

// cluster groups keys with the pending keys they depend on. report is called
// once per group with its size and its smallest key. It returns the number of
// groups.
func cluster(keys []ckey, deps func(ckey) []ckey, report func(int, ckey)) int {
	elems := make(map[ckey]*uf.Element, len(keys))
	for _, k := range keys {
		el := uf.NewElement()
		el.Data = k
		elems[k] = el
	}
	for _, k := range keys {
		for _, d := range deps(k) {
			if other, ok := elems[d]; ok {
				uf.Union(elems[k], other)
			} else if other, ok := elems[d.flip()]; ok {
				uf.Union(elems[k], other)
			}
		}
	}

	sizes := map[*uf.Element]int{}
	reps := map[*uf.Element]ckey{}
	order := []*uf.Element{}
	for _, k := range keys {
		rep := elems[k].Find()
		if _, seen := sizes[rep]; !seen {
			order = append(order, rep)
			reps[rep] = k
		}
		sizes[rep]++
	}
	for _, rep := range order {
		report(sizes[rep], reps[rep])
	}
	return len(order)
}
