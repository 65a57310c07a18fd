package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across every mounted route.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ozonebridge",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// PollCycleDuration tracks how long one full scheduler cycle over every
// enabled tenant takes.
var PollCycleDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "ozonebridge",
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one polling cycle across all enabled tenants.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

// PollCursorAdvancesTotal counts how many times a tenant's sync cursor moved
// forward after a poll.
var PollCursorAdvancesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ozonebridge",
		Subsystem: "poller",
		Name:      "cursor_advances_total",
		Help:      "Total number of sync cursor advances, by tenant.",
	},
	[]string{"tenant_id"},
)

// PollEventsRoutedTotal counts inbound events routed to the review queue,
// by classified category.
var PollEventsRoutedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ozonebridge",
		Subsystem: "poller",
		Name:      "events_routed_total",
		Help:      "Total number of classified inbound events routed, by category.",
	},
	[]string{"category"},
)

// EmitEventOutcomesTotal counts outbound emitEvent attempts by their
// terminal audit status.
var EmitEventOutcomesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ozonebridge",
		Subsystem: "emit",
		Name:      "outcomes_total",
		Help:      "Total number of outbound emitEvent attempts, by outcome.",
	},
	[]string{"event_type", "outcome"},
)

// All returns this repo's own collectors for registration, in addition to
// the shared HTTPRequestDuration metric registered by NewMetricsRegistry.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		PollCycleDuration,
		PollCursorAdvancesTotal,
		PollEventsRoutedTotal,
		EmitEventOutcomesTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process
// collectors, the shared HTTPRequestDuration metric, and any additional
// service-specific collectors passed as arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
