// Package metrics holds the arena's Prometheus collectors. Collectors live in
// the default registry; the API server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "matches_total",
		Help:      "Finished matches by game and outcome.",
	}, []string{"game", "outcome"})

	matchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Name:      "match_duration_seconds",
		Help:      "Wall-clock duration of finished matches.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"game"})

	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "move_attempts_total",
		Help:      "Agent move attempts by game and outcome.",
	}, []string{"game", "outcome"})

	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "provider_requests_total",
		Help:      "LLM provider round trips by provider and status.",
	}, []string{"provider", "status"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Name:      "provider_request_seconds",
		Help:      "LLM provider request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})
)

// RecordMatch counts one finished match.
func RecordMatch(game, outcome string, seconds float64) {
	matchesTotal.WithLabelValues(game, outcome).Inc()
	matchDuration.WithLabelValues(game).Observe(seconds)
}

// RecordAttempt counts one agent move attempt.
func RecordAttempt(game, outcome string) {
	attemptsTotal.WithLabelValues(game, outcome).Inc()
}

// RecordProviderRequest counts one provider round trip.
func RecordProviderRequest(provider, status string, seconds float64) {
	providerRequests.WithLabelValues(provider, status).Inc()
	providerLatency.WithLabelValues(provider).Observe(seconds)
}
