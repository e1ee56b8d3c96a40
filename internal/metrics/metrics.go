// Package metrics defines the bot's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	prometheus.Collector
}

type Metrics struct {
	// Invocations counts resolved commands, labelled by command kind.
	Invocations Observer
	// ResolveLatency observes seconds spent resolving, labelled by command kind.
	ResolveLatency Observer
	// CreateOutcomes counts create attempts, labelled by outcome.
	CreateOutcomes Observer
	// Notifications counts messages sent by the resolver.
	Notifications Observer
	// InteractionFailures counts room interaction writes that failed.
	InteractionFailures Observer
}

// New creates a fresh set of unregistered metrics.
func New() *Metrics {
	return &Metrics{
		Invocations: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "triphelper",
					Subsystem: "commands",
					Name:      "invocations_total",
					Help:      "Number of /trip invocations resolved.",
				},
				[]string{"command"},
			),
		),
		ResolveLatency: NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
					Namespace: "triphelper",
					Subsystem: "commands",
					Name:      "resolve_latency_seconds",
					Help:      "How long resolving a command takes in seconds.",
				},
				[]string{"command"},
			),
		),
		CreateOutcomes: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "triphelper",
					Subsystem: "commands",
					Name:      "create_outcomes_total",
					Help:      "Number of create invocations by outcome.",
				},
				[]string{"outcome"},
			),
		),
		Notifications: NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "triphelper",
					Subsystem: "commands",
					Name:      "notifications_total",
					Help:      "Number of notifications sent while resolving commands.",
				},
			),
		),
		InteractionFailures: NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "triphelper",
					Subsystem: "storage",
					Name:      "interaction_failures_total",
					Help:      "Number of room interaction writes that failed.",
				},
			),
		),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Invocations,
		m.ResolveLatency,
		m.CreateOutcomes,
		m.Notifications,
		m.InteractionFailures,
	}
}
