package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatMessagesCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_messages_total",
			Help: "Total number of chat messages processed",
		},
		[]string{"intent"},
	)

	NotificationsCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_notifications_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"channel", "status"}, // status: sent, failed
	)

	SweepProcessedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_sweep_processed_total",
			Help: "Total number of scheduled notifications resolved by sweeps",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// Recorder implements the chatbot and notification Metrics ports with the package counters.
type Recorder struct{}

func (Recorder) ObserveIntent(intent string) {
	ChatMessagesCount.WithLabelValues(intent).Inc()
}

func (Recorder) ObserveDelivery(channel, status string) {
	NotificationsCount.WithLabelValues(channel, status).Inc()
}

func (Recorder) ObserveSweep(processed int) {
	SweepProcessedCount.Add(float64(processed))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
