// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/bizlens/internal/coordinator"
	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
)

var (
	FetchesCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizlens_fetches_committed_total",
			Help: "Fetches whose result was committed to state, by provenance",
		},
		[]string{"operation", "provenance"},
	)

	FetchesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizlens_fetches_skipped_total",
			Help: "Fetch triggers dropped by the coordinator",
		},
		[]string{"operation", "reason"},
	)

	StaleDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizlens_stale_discards_total",
			Help: "Results dropped because a newer generation superseded them",
		},
		[]string{"operation"},
	)

	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizlens_fallbacks_total",
			Help: "Times a source failed and synthetic data was used",
		},
		[]string{"operation", "source"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizlens_notifications_total",
			Help: "Notification requests, by whether they were shown",
		},
		[]string{"shown"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizlens_fetch_duration_seconds",
			Help:    "Duration of a coordinated fetch from begin to commit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bizlens_breaker_state",
			Help: "Circuit breaker state per source (0 closed, 1 open, 2 half-open)",
		},
		[]string{"source"},
	)
)

// ObserveSkip is a coordinator skip observer.
func ObserveSkip(op model.Operation, reason coordinator.SkipReason) {
	FetchesSkipped.WithLabelValues(string(op), string(reason)).Inc()
}

// ObserveNotification is a notify throttle observer.
func ObserveNotification(_ string, shown bool) {
	Notifications.WithLabelValues(strconv.FormatBool(shown)).Inc()
}

// ObserveBreaker is a breaker transition observer.
func ObserveBreaker(source string, _, to resilience.State) {
	BreakerState.WithLabelValues(source).Set(float64(to))
}
