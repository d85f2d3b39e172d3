// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine collectors so they can be registered on
// any registry (the server uses the default one).
type Metrics struct {
	TurnsTotal    *prometheus.CounterVec
	TurnHops      prometheus.Histogram
	HookFailures  prometheus.Counter
	SessionsEnded prometheus.Counter
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "turns_total",
			Help:      "Processed turns by outcome.",
		}, []string{"tenant", "outcome"}),
		TurnHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convoflow",
			Name:      "turn_hops",
			Help:      "Nodes executed per turn.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		HookFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "hook_failures_total",
			Help:      "Funnel hook dispatches that failed or timed out.",
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "sessions_ended_total",
			Help:      "Sessions that reached an end node.",
		}),
	}
}

// Register registers every collector on the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.TurnsTotal, m.TurnHops, m.HookFailures, m.SessionsEnded} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
