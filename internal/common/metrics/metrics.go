// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_runs_total",
			Help: "Total number of matching runs by outcome",
		},
		[]string{"status"}, // converged | capped | empty
	)

	MatchingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matching_run_duration_seconds",
			Help: "Duration of a full matching run in seconds",
		},
		[]string{"strategy"},
	)

	MatchingIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_iterations",
			Help:    "Proposal rounds used per deferred-acceptance run",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	MatchesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_produced_total",
			Help: "Total number of matches produced",
		},
		[]string{"algorithm"},
	)

	CustomersUnmatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "customers_unmatched_total",
			Help: "Customers left without any acceptable stylist",
		},
	)

	MatchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Distribution of produced match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	RatingUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_updates_total",
			Help: "Total number of Elo rating updates by result",
		},
		[]string{"result"}, // applied | conflict | failed
	)

	RatingUpdateRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rating_update_retries_total",
			Help: "Compare-and-swap retries during rating updates",
		},
	)

	OutcomeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outcome_events_total",
			Help: "Outcome feed events by disposition",
		},
		[]string{"disposition"}, // applied | invalid | requeued | dropped
	)
)
