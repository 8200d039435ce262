// Package metrics defines the Prometheus collectors exported by connpool and
// ratelimit.
//
// Collectors are created through promauto.With, so a nil Registerer yields
// working but unregistered collectors. Registering two collector sets with the
// same name on one Registerer panics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task execution modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Task and initialization outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeFailed        = "failed"
	OutcomeAcquireFailed = "acquire_failed"
	OutcomePanic         = "panic"
)

// Rate limiter decisions.
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

// Pool holds the collectors of one connection pool manager.
type Pool struct {
	// Tasks counts finished units of work.
	// Labels: mode (sync/async), outcome (success/failed/acquire_failed/panic)
	Tasks *prometheus.CounterVec

	// AsyncInflight is the number of dispatched async tasks that have not finished.
	AsyncInflight prometheus.Gauge

	// Inits counts Initialize calls by outcome (success/failed).
	Inits *prometheus.CounterVec
}

// NewPool creates the pool collectors labelled with the pool name.
func NewPool(reg prometheus.Registerer, name string) *Pool {
	f := promauto.With(reg)
	labels := prometheus.Labels{"pool": name}
	return &Pool{
		Tasks: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "connpool_tasks_total",
			Help:        "Total number of database actions executed through the pool",
			ConstLabels: labels,
		}, []string{"mode", "outcome"}),
		AsyncInflight: f.NewGauge(prometheus.GaugeOpts{
			Name:        "connpool_async_inflight",
			Help:        "Number of asynchronous database actions dispatched but not finished",
			ConstLabels: labels,
		}),
		Inits: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "connpool_init_total",
			Help:        "Total number of pool initialization attempts",
			ConstLabels: labels,
		}, []string{"outcome"}),
	}
}

// Task records one finished unit of work.
func (p *Pool) Task(mode, outcome string) {
	p.Tasks.WithLabelValues(mode, outcome).Inc()
}

// Init records one initialization attempt.
func (p *Pool) Init(ok bool) {
	if ok {
		p.Inits.WithLabelValues(OutcomeSuccess).Inc()
		return
	}
	p.Inits.WithLabelValues(OutcomeFailed).Inc()
}

// RateLimit holds the collectors of one rate limiter.
type RateLimit struct {
	// Decisions counts TryAccept results. Labels: decision (accepted/rejected)
	Decisions *prometheus.CounterVec
}

// NewRateLimit creates the limiter collectors labelled with the limiter name.
func NewRateLimit(reg prometheus.Registerer, name string) *RateLimit {
	return &RateLimit{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name:        "ratelimit_decisions_total",
			Help:        "Total number of rate limit decisions",
			ConstLabels: prometheus.Labels{"limiter": name},
		}, []string{"decision"}),
	}
}

// Decision records one TryAccept result.
func (r *RateLimit) Decision(accepted bool) {
	if accepted {
		r.Decisions.WithLabelValues(DecisionAccepted).Inc()
		return
	}
	r.Decisions.WithLabelValues(DecisionRejected).Inc()
}
