// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uke_calls_total",
			Help: "Ledger calls by call name and outcome.",
		},
		[]string{"call", "outcome"},
	)

	CallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uke_call_duration_seconds",
			Help:    "Time spent executing and committing a ledger call.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"call"},
	)

	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uke_events_total",
			Help: "Notifications delivered after commit, by kind.",
		},
		[]string{"kind"},
	)

	SinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uke_event_sink_failures_total",
			Help: "Failed notification deliveries by sink.",
		},
		[]string{"sink"},
	)

	Snapshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uke_snapshots_total",
			Help: "Snapshot runs by outcome.",
		},
		[]string{"outcome"},
	)

	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "go_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)
)

func init() {
	prometheus.MustRegister(Calls, CallDuration, Events, SinkFailures, Snapshots, heapAlloc)
}

// ObserveCall records one finished call.
func ObserveCall(call, outcome string, started time.Time) {
	Calls.WithLabelValues(call, outcome).Inc()
	CallDuration.WithLabelValues(call).Observe(time.Since(started).Seconds())
}
