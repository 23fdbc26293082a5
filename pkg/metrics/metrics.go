// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebhookEventsTotal counts inbound webhook events by type and outcome.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_webhook_events_total",
			Help: "Webhook events received",
		},
		[]string{"type", "result"},
	)

	// MessagesStoredTotal counts ledger inserts; result is inserted or duplicate.
	MessagesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_messages_stored_total",
			Help: "Messages written to the ledger",
		},
		[]string{"sender_type", "result"},
	)

	// ResponseTimeSeconds observes every response time record created.
	ResponseTimeSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_response_time_seconds",
			Help:    "Agent response time in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600, 4 * 3600, 24 * 3600},
		},
		[]string{"business_hours_status"},
	)

	// ResponseTimesSkippedTotal counts pairings rejected by the validity window.
	ResponseTimesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_response_times_skipped_total",
			Help: "Customer/agent pairings skipped",
		},
		[]string{"reason"},
	)

	// RecomputeDuration tracks full recompute runs.
	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_recompute_duration_seconds",
			Help:    "Full response time recompute duration",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		},
	)

	// JournalPublishFailures counts journal entries that could not be published.
	JournalPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_journal_publish_failures_total",
			Help: "Journal publish failures",
		},
		[]string{"backend", "kind"},
	)

	// CacheRequestsTotal counts read cache lookups.
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_cache_requests_total",
			Help: "Metrics cache lookups",
		},
		[]string{"result"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordWebhookEvent counts a webhook event outcome.
func RecordWebhookEvent(eventType, result string) {
	WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordMessageStored counts a ledger insert attempt.
func RecordMessageStored(senderType string, inserted bool) {
	result := "inserted"
	if !inserted {
		result = "duplicate"
	}
	MessagesStoredTotal.WithLabelValues(senderType, result).Inc()
}

// RecordResponseTime observes a created response time record.
func RecordResponseTime(status string, seconds int64) {
	ResponseTimeSeconds.WithLabelValues(status).Observe(float64(seconds))
}

// RecordResponseTimeSkipped counts a rejected pairing.
func RecordResponseTimeSkipped(reason string) {
	ResponseTimesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheRequestsTotal.WithLabelValues("miss").Inc()
}
