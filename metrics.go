package main

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
	log "github.com/sirupsen/logrus"

	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/solver"
)

// runMetrics collects the metrics of one pipeline run. Engines report
// concurrently; every metric is safe for that.
type runMetrics struct {
	set *metrics.Set

	engineRuns   *metrics.Counter
	combinedRuns *metrics.Counter
	states       *metrics.Histogram
}

func newRunMetrics() *runMetrics {
	set := metrics.NewSet()
	return &runMetrics{
		set:          set,
		engineRuns:   set.NewCounter("contra_engine_runs_total"),
		combinedRuns: set.NewCounter("contra_engine_combined_runs_total"),
		states:       set.NewHistogram("contra_engine_states"),
	}
}

// observe records the engine runs spent on m.
func (m *runMetrics) observe(method defs.Method, stats []absint.Stats) {
	for _, st := range stats {
		m.engineRuns.Inc()
		if st.Combined {
			m.combinedRuns.Inc()
		}
		m.states.Update(float64(st.States))

		if st.Degraded != absint.NotDegraded {
			m.set.GetOrCreateCounter(fmt.Sprintf(`contra_engine_degradations_total{cause=%q}`, st.Degraded)).Inc()
			log.Debugf("%s: degraded after %d states (%s)", method, st.States, st.Degraded)
		}
	}
}

// solved records the statistics of a solver run under the given name.
func (m *runMetrics) solved(name string, st solver.Stats) {
	for metric, v := range map[string]int{
		"equations":     st.Equations,
		"known":         st.Known,
		"substitutions": st.Substitutions,
		"orphans":       st.Orphans,
		"cyclic":        st.Cyclic,
	} {
		m.set.GetOrCreateCounter(fmt.Sprintf(`contra_solver_%s_total{solver=%q}`, metric, name)).Set(uint64(v))
	}
}

func (m *runMetrics) write(w io.Writer) {
	m.set.WritePrometheus(w)
}
