package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by Metrics
const (
	OutcomeExecuted  = "executed"
	OutcomeNoop      = "noop"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
)

// Metrics collects execution stage metrics
type Metrics struct {
	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	executionCost prometheus.Histogram
	publishErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a private registry
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Execution requests handled, by outcome",
			},
			[]string{"outcome"}, // executed, noop, rejected, duplicate
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Rejected execution requests, by failing stage",
			},
			[]string{"stage"},
		),
		executionCost: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_cost_abs",
				Help:      "Absolute simulated execution cost",
				Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
			},
		),
		publishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_errors_total",
				Help:      "Failed publishes, by topic",
			},
			[]string{"topic"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.rejections,
		m.executionCost,
		m.publishErrors,
	)

	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveExecution records an enriched request
func (m *Metrics) ObserveExecution(status string, cost float64) {
	m.requestsTotal.WithLabelValues(status).Inc()
	if cost < 0 {
		cost = -cost
	}
	m.executionCost.Observe(cost)
}

// IncRejected records a request rejected at stage
func (m *Metrics) IncRejected(stage string) {
	m.requestsTotal.WithLabelValues(OutcomeRejected).Inc()
	m.rejections.WithLabelValues(stage).Inc()
}

// IncDuplicate records a redelivered request that was skipped
func (m *Metrics) IncDuplicate() {
	m.requestsTotal.WithLabelValues(OutcomeDuplicate).Inc()
}

// IncPublishError records a failed publish
func (m *Metrics) IncPublishError(topic string) {
	m.publishErrors.WithLabelValues(topic).Inc()
}
