// Package metrics exposes Prometheus collectors for the bot and the
// matching loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quantfx/pricewatch-bot/internal/flow"
)

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates handled, labeled by update kind and status",
		},
		[]string{"update", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"update"},
	)
	flowsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flows_started_total",
			Help: "Total number of alert-creation flows started",
		},
		[]string{"kind"},
	)
	flowsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flows_finished_total",
			Help: "Total number of flows finished, labeled by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	flowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_transitions_total",
			Help: "Total number of flow state transitions",
		},
		[]string{"kind", "from", "to"},
	)
	activePriceAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_price_alerts",
			Help: "Current number of live price alerts",
		},
	)
	activeSharpTurnAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sharpturn_alerts",
			Help: "Current number of stored sharp-turn alerts",
		},
	)
	alertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_fired_total",
			Help: "Total number of price alerts fired",
		},
		[]string{"direction"},
	)
	feedTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_ticks_total",
			Help: "Total number of ticks fetched by the matching loop",
		},
	)
	feedTicksDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_ticks_deduplicated_total",
			Help: "Total number of ticks skipped because their timestamp was already processed",
		},
	)
	feedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_errors_total",
			Help: "Total number of price feed failures, labeled by operation",
		},
		[]string{"op"},
	)
)

func init() {
	flow.RegisterTransitionRecorder(RecordFlowTransition)
}

// RecordUpdate increments the update counter and records handling duration.
func RecordUpdate(update, status string, duration time.Duration) {
	if update == "" {
		update = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botUpdatesTotal.WithLabelValues(update, status).Inc()
	updateDurationSeconds.WithLabelValues(update).Observe(duration.Seconds())
}

// RecordFlowStarted counts a newly opened flow.
func RecordFlowStarted(kind string) {
	flowsStartedTotal.WithLabelValues(kind).Inc()
}

// RecordFlowFinished counts a flow leaving the queue; outcome is "saved" or
// "aborted".
func RecordFlowFinished(kind, outcome string) {
	flowsFinishedTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordFlowTransition counts one FSM transition.
func RecordFlowTransition(kind, from, to string) {
	flowTransitionsTotal.WithLabelValues(kind, from, to).Inc()
}

// SetActiveAlerts publishes the current store sizes.
func SetActiveAlerts(price, sharp int) {
	activePriceAlerts.Set(float64(price))
	activeSharpTurnAlerts.Set(float64(sharp))
}

// RecordAlertFired counts a fired price alert.
func RecordAlertFired(direction string) {
	alertsFiredTotal.WithLabelValues(direction).Inc()
}

// RecordTick counts a fetched tick and whether it was skipped as a
// duplicate.
func RecordTick(deduplicated bool) {
	feedTicksTotal.Inc()
	if deduplicated {
		feedTicksDeduplicatedTotal.Inc()
	}
}

// RecordFeedError counts a feed failure for the given operation.
func RecordFeedError(op string) {
	feedErrorsTotal.WithLabelValues(op).Inc()
}
