package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names are also referenced by PromQL in pkg/health.
const (
	AttemptsTotalName   = "router_candidate_attempts_total"
	AttemptDurationName = "router_candidate_attempt_duration_seconds"
)

var (
	CandidateAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: AttemptsTotalName,
		Help: "Generation attempts per candidate, by outcome and failure reason",
	}, []string{"candidate", "outcome", "reason"})

	CandidateAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    AttemptDurationName,
		Help:    "Time taken by a single generation attempt",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"outcome"})

	Exhaustions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "router_exhaustions_total",
		Help: "Requests for which every candidate in the ordering failed",
	}, []string{"aborted"})

	Evictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "router_candidate_evictions_total",
		Help: "Candidates removed from the pool, by cause",
	}, []string{"cause"})

	DiscoveryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "router_discovery_refreshes_total",
		Help: "Discovery refresh attempts, by result",
	}, []string{"result"})

	PoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "router_pool_candidates",
		Help: "Number of candidates currently in the pool",
	})

	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "router_persistence_errors_total",
		Help: "Store backend load/save failures",
	}, []string{"op"})

	ThrottleFactor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "router_throttle_factor",
		Help: "Current adaptive throttle factor applied to outgoing generation calls",
	})

	ThrottledAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "router_throttled_attempts_total",
		Help: "Attempts abandoned by the adaptive throttle before reaching a candidate",
	})

	ScheduledRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "router_scheduled_runs_total",
		Help: "Scheduled generation runs, by result",
	}, []string{"result"})
)
