package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gosocket",
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Commands sent to a socket, by outcome.",
		},
		[]string{"command", "result"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gosocket",
			Subsystem: "session",
			Name:      "command_duration_seconds",
			Help:      "Time from frame write to interpreted reply.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"command"},
	)
	staleNotifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gosocket",
			Subsystem: "session",
			Name:      "stale_notifications_total",
			Help:      "Notifications dropped because no command was waiting for them.",
		},
	)
)

// RegisterMetrics adds the session collectors to the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionCommands, sessionDuration, staleNotifications)
	})
}

// RecordCommand counts one finished exchange. result is a short outcome label such as
// "ok", "timeout" or "framing_error".
func RecordCommand(command, result string, duration time.Duration) {
	sessionCommands.WithLabelValues(command, result).Inc()
	sessionDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordStaleNotification() {
	staleNotifications.Inc()
}
