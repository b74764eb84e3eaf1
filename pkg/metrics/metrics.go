package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapters_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// QuotaConsumes counts Open Page consume attempts and their outcome (success|exhausted).
	QuotaConsumes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapters_quota_consumes_total",
			Help: "Total number of Open Page consume attempts",
		},
		[]string{"result"},
	)

	// InviteDecisions counts invite lifecycle outcomes
	// (created|accepted|declined|rejected|capped|duplicate).
	InviteDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapters_btl_invites_total",
			Help: "Total number of Between the Lines invite outcomes",
		},
		[]string{"result"},
	)

	// OpenThreads tracks conversations currently open.
	OpenThreads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chapters_btl_open_threads",
			Help: "Number of open Between the Lines conversations",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chapters_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
