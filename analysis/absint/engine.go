package absint

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/frame"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/analysis/origins"
	"github.com/cs-au-dk/contra/utils/hmap"
)

// engine explores every reachable branch combination of one method for one
// direction, accumulating what each path contributes.
type engine struct {
	ctx    context.Context
	body   *ir.Body
	graph  cfg.Graph
	interp *interpreter
	lat    lattice.Lattice
	limits Limits

	result lattice.Result
	stack  []*state
	memo   *hmap.Map[*state, []defs.KeySet]
	stats  Stats
}

func newEngine(ctx context.Context, body *ir.Body, graph cfg.Graph, orig origins.Origins, dir defs.Direction, limits Limits) *engine {
	it := &interpreter{
		body:     body,
		origins:  orig,
		analysis: AnalysisFor(dir),
		param:    -1,
	}
	switch dir.Kind {
	case defs.In:
		it.param, it.hyp = dir.Param, defs.Null
	case defs.InOut:
		it.param, it.hyp = dir.Param, dir.Value
	}

	lat := lattice.For(dir)
	return &engine{
		ctx:    ctx,
		body:   body,
		graph:  graph,
		interp: it,
		lat:    lat,
		limits: limits.orDefaults(),
		result: lattice.Final{Value: lat.Bot},
		memo:   hmap.New[*state, []defs.KeySet](stateHasher{}),
	}
}

func (e *engine) entry() *state {
	f := frame.Entry[Value](e.body, e.interp, func(n int, t ir.Type) Value {
		switch {
		case n < 0:
			return tagged(ThisValue, ir.RefSort)
		case n == e.interp.param:
			return tagged(ParamValue, t.Sort)
		}
		return generic(t.Sort)
	})
	return &state{conf: conf{insn: 0, frame: f}}
}

func (e *engine) contribute(r lattice.Result) {
	e.result = e.lat.JoinResults(e.result, r)
}

func (e *engine) saturated() bool {
	f, ok := e.result.(lattice.Final)
	return ok && f.Value == e.lat.Top
}

func (e *engine) degrade(why Degradation) lattice.Result {
	e.stats.Degraded = why
	log.Debugf("%v: %v analysis degraded after %d states (%v)",
		e.body.Method, e.interp.analysis, e.stats.States, why)
	return lattice.Final{Value: e.lat.Unknown}
}

// run drives the worklist to completion.
func (e *engine) run() lattice.Result {
	if len(e.body.Insns) == 0 {
		return e.result
	}

	e.stack = append(make([]*state, 0, 64), e.entry())
	for len(e.stack) > 0 {
		e.stats.States++
		if e.stats.States > e.limits.StepsLimit {
			return e.degrade(StepsExceeded)
		}
		if e.stats.States%e.limits.InterruptEvery == 0 && e.ctx.Err() != nil {
			return e.degrade(Interrupted)
		}

		s := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		if e.graph.IsLoopHeader(s.conf.insn) {
			var folded bool
			if s, folded = e.fold(s); folded {
				continue
			}
		}
		if e.memoized(s) {
			continue
		}

		e.step(s)
		if e.saturated() {
			break
		}
		if len(e.stack) > e.limits.PendingLimit {
			return e.degrade(PendingExceeded)
		}
	}
	return e.result
}

// fold widens s and checks it against the configurations its path already
// visited at loop headers. A repeated configuration ends the path.
func (e *engine) fold(s *state) (*state, bool) {
	entry := historyEntry{conf: s.conf.widen(), taken: s.taken, assume: s.assume}
	for _, h := range s.history {
		if h.equiv(entry) {
			return s, true
		}
	}
	history := make([]historyEntry, len(s.history), len(s.history)+1)
	copy(history, s.history)
	return &state{
		conf:     entry.conf,
		history:  append(history, entry),
		taken:    s.taken,
		pathKeys: s.pathKeys,
		assume:   s.assume,
	}, false
}

// memoized reports whether an interchangeable state was processed before.
// A previous state subsumes s when its path keys are a subset of those of
// s: its contribution was at least as large.
func (e *engine) memoized(s *state) (seen bool) {
	e.memo.Update(s, func(prev []defs.KeySet, _ bool) []defs.KeySet {
		for _, keys := range prev {
			if keys.SubsetOf(s.pathKeys) {
				seen = true
				return prev
			}
		}
		return append(prev, s.pathKeys)
	})
	return
}

func (e *engine) step(s *state) {
	i := s.conf.insn
	in := e.body.Insns[i]
	pre := s.conf.frame
	it := e.interp
	it.reset(i)

	switch in.Op {
	case ir.Return:
		e.returned(s, in, pre)
		return
	case ir.Throw:
		if len(e.graph.Successors(i)) == 0 {
			e.thrown(s)
			return
		}
	}

	post := pre.Copy()
	post.Execute(in, it)

	if it.step.dereferenced {
		// The path throws on the hypothesized null.
		if it.analysis == NullableIn {
			e.contribute(lattice.Final{Value: defs.Top})
		}
		return
	}

	pathKeys := s.pathKeys
	switch it.analysis {
	case NotNullIn:
		for _, k := range it.step.inKeys {
			pathKeys = pathKeys.Add(k)
		}
	case NullableIn:
		if it.step.escaped {
			e.contribute(lattice.Final{Value: defs.Top})
			return
		}
		for _, k := range it.step.inKeys {
			e.contribute(lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: defs.NewKeySet(k)}}})
		}
	}

	br := e.branch(s, in, pre)
	for _, succ := range e.graph.Successors(i) {
		next := &state{
			conf:     conf{insn: succ, frame: post},
			history:  s.history,
			taken:    s.taken || br.taken,
			pathKeys: pathKeys,
			assume:   s.assume,
		}
		switch {
		case e.graph.IsExceptionalEdge(i, succ):
			next.conf.frame = pre.Catch(generic(ir.RefSort))
			next.taken = s.taken
		case br.decided:
			if (succ == in.Target) != br.jump && !(succ == in.Target && succ == i+1) {
				continue
			}
		case br.split:
			next.assume = br.fall
			if succ == in.Target {
				next.assume = br.target
			}
		}
		e.stack = append(e.stack, next)
	}
}

func (e *engine) returned(s *state, in ir.Instruction, pre frame.Frame[Value]) {
	switch e.interp.analysis {
	case NotNullIn:
		if s.pathKeys.Empty() {
			e.contribute(lattice.Final{Value: defs.Top})
		} else {
			e.contribute(lattice.Pending{Sum: []lattice.Product{{Value: defs.Top, Keys: s.pathKeys}}})
		}
	case NullableIn:
	default:
		if in.Sort == ir.VoidSort {
			return
		}
		e.contribute(e.interp.returnContribution(pre.Peek(0), s.assume))
	}
}

// thrown handles an uncaught athrow. A throw on a path specialized for the
// null parameter means null is rejected; any other throw says nothing about
// the parameter.
func (e *engine) thrown(s *state) {
	switch e.interp.analysis {
	case NotNullIn:
		if !s.taken {
			e.contribute(lattice.Final{Value: defs.Top})
		}
	case NullableIn:
		if s.taken {
			e.contribute(lattice.Final{Value: defs.Top})
		}
	}
}

// branchOutcome describes how a conditional branch is explored.
type branchOutcome struct {
	// decided branches only follow the jump (or the fall through) edge.
	decided, jump bool
	// taken is set when the decision depends on the parameter.
	taken bool
	// split branches follow both edges under opposite assumptions.
	split        bool
	target, fall *assumption
}

func (e *engine) branch(s *state, in ir.Instruction, pre frame.Frame[Value]) (br branchOutcome) {
	hyp := e.interp.hyp
	decide := func(jump, taken bool) branchOutcome {
		return branchOutcome{decided: true, jump: jump, taken: taken}
	}

	switch in.Op {
	case ir.If:
		v := pre.Peek(0)
		switch in.Cond {
		case ir.CondNull, ir.CondNonNull:
			isNull := in.Cond == ir.CondNull
			switch v.Kind {
			case ParamValue:
				if hyp == defs.Null || hyp == defs.NotNull {
					return decide(isNull == (hyp == defs.Null), true)
				}
			case NullValue:
				return decide(isNull, false)
			case NotNullValue, ThisValue:
				return decide(!isNull, false)
			}
		case ir.CondEq, ir.CondNe:
			jumpIfZero := in.Cond == ir.CondEq
			switch v.Kind {
			case ParamValue:
				if hyp.IsBoolean() {
					return decide(jumpIfZero == (hyp == defs.False), true)
				}
			case InstanceOfValue:
				if hyp == defs.Null {
					return decide(jumpIfZero, true)
				}
			case TrueValue:
				return decide(!jumpIfZero, false)
			case FalseValue:
				return decide(jumpIfZero, false)
			case CallResultValue:
				if e.interp.analysis == Contract && s.assume == nil && v.Sort == ir.BooleanSort {
					onJump, onFall := defs.True, defs.False
					if jumpIfZero {
						onJump, onFall = defs.False, defs.True
					}
					return branchOutcome{
						split:  true,
						target: &assumption{keys: v.Keys, value: onJump},
						fall:   &assumption{keys: v.Keys, value: onFall},
					}
				}
			}
		}
	case ir.IfCmp:
		if in.Sort != ir.RefSort {
			break
		}
		v1, v2 := pre.Peek(1), pre.Peek(0)
		if v2.Kind == ParamValue {
			v1, v2 = v2, v1
		}
		if v1.Kind == ParamValue && v2.Kind == NullValue && (hyp == defs.Null || hyp == defs.NotNull) {
			jumpIfEqual := in.Cond == ir.CondEq
			return decide(jumpIfEqual == (hyp == defs.Null), true)
		}
	}
	return
}
