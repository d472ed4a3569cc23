package redline

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/codalotl/redline/internal/diff"
)

// Outcomes of one Apply call, used as metric labels.
const (
	OutcomeComplete = "complete" // every op applied
	OutcomePartial  = "partial"  // some anchors were skipped
	OutcomeFailed   = "failed"   // a StepError aborted the run
)

// Metrics records redline activity in Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	ops      *prom.CounterVec
	runs     *prom.CounterVec
	duration prom.Histogram
}

// NewMetrics constructs redline metrics and registers them with reg. If reg is nil, a private registry is used.
func NewMetrics(reg prom.Registerer) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{
		ops: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "redline",
			Name:      "ops_total",
			Help:      "Edit script ops processed, by kind and result",
		}, []string{"op", "result"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "redline",
			Name:      "runs_total",
			Help:      "Apply calls by outcome",
		}, []string{"outcome"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "redline",
			Name:      "apply_duration_seconds",
			Help:      "Duration of Apply calls",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(m.ops, m.runs, m.duration)
	return m
}

func (m *Metrics) op(op diff.Op, result string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op.String(), result).Inc()
}

func (m *Metrics) run(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}
