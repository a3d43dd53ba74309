package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hotelbooking"

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeAbandoned   = "abandoned"
	OutcomeRejected    = "rejected"
	OutcomeDuplicate   = "duplicate"
	OutcomeRetried     = "retried"
	OutcomeDeadLetter  = "dead_letter"
	OutcomeClientError = "client_error"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Booking commands by name and outcome.",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Unit of work duration, commit included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	auditEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit log entries written.",
		},
	)

	publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integration_publish_total",
			Help:      "Integration events published by routing key and outcome.",
		},
		[]string{"routing_key", "outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Consumed integration messages by routing key and outcome.",
		},
		[]string{"routing_key", "outcome"},
	)

	searchCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Availability search cache lookups.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, commands, commandDuration, auditEntries, publishes, notifications, searchCache)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncCommand(command, outcome string) {
	commands.WithLabelValues(command, outcome).Inc()
}

func ObserveCommand(command string, seconds float64) {
	commandDuration.WithLabelValues(command).Observe(seconds)
}

func AddAuditEntries(n int) {
	auditEntries.Add(float64(n))
}

func IncPublish(routingKey, outcome string) {
	publishes.WithLabelValues(routingKey, outcome).Inc()
}

func IncNotification(routingKey, outcome string) {
	notifications.WithLabelValues(routingKey, outcome).Inc()
}

func IncSearchCache(hit bool) {
	if hit {
		searchCache.WithLabelValues("hit").Inc()
		return
	}
	searchCache.WithLabelValues("miss").Inc()
}
