// Package monitoring defines the Prometheus collectors of the coordination
// layer. Every method is safe on a nil *Metrics, so callers that do not want
// metrics simply pass nil.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Fabric metrics
	MessagesDelivered *prometheus.CounterVec
	AcquireRequests   *prometheus.CounterVec
	MemoryWrites      prometheus.Counter

	// Flow control
	CreditStalls prometheus.Counter

	// Runtime metrics
	Dispatches  prometheus.Counter
	CoresActive prometheus.Gauge
	Faults      prometheus.Counter

	// Pattern metrics
	PatternRuns     *prometheus.CounterVec
	PatternDuration *prometheus.HistogramVec
	Barriers        *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesDelivered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilenet_messages_delivered_total",
				Help: "Messages placed in an input channel or memory bank",
			},
			[]string{"kind", "address"},
		),
		AcquireRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilenet_acquire_requests_total",
				Help: "Connection acquisition requests by outcome",
			},
			[]string{"outcome"},
		),
		MemoryWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "tilenet_memory_writes_total",
			Help: "Words written to memory bank addresses",
		}),
		CreditStalls: f.NewCounter(prometheus.CounterOpts{
			Name: "tilenet_credit_stalls_total",
			Help: "Sends that blocked because no credit was available",
		}),
		Dispatches: f.NewCounter(prometheus.CounterOpts{
			Name: "tilenet_dispatches_total",
			Help: "Instruction packets accepted by idle cores",
		}),
		CoresActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "tilenet_cores_active",
			Help: "Cores currently running a task",
		}),
		Faults: f.NewCounter(prometheus.CounterOpts{
			Name: "tilenet_core_faults_total",
			Help: "Tasks that panicked or returned an error",
		}),
		PatternRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilenet_pattern_runs_total",
				Help: "Execution pattern invocations by outcome",
			},
			[]string{"pattern", "outcome"},
		),
		PatternDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tilenet_pattern_duration_seconds",
				Help:    "Execution pattern wall time",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"pattern"},
		),
		Barriers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilenet_barriers_total",
				Help: "Barrier crossings by kind",
			},
			[]string{"kind"},
		),
	}
}
