package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igihozo_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "igihozo_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Chat metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igihozo_messages_sent_total",
			Help: "Total user messages committed to the log",
		},
		[]string{"channel"}, // "broadcast" or "direct"
	)

	StreamSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "igihozo_stream_subscriptions",
			Help: "Currently active live stream subscriptions",
		},
		[]string{"channel"},
	)

	StreamErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "igihozo_stream_errors_total",
			Help: "Total terminal stream subscription errors",
		},
	)

	// Assistant metrics
	AssistantTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "igihozo_assistant_triggers_total",
			Help: "Total assistant invocations",
		},
	)

	AssistantReplies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "igihozo_assistant_replies_total",
			Help: "Total assistant replies committed to the log",
		},
	)

	AssistantFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "igihozo_assistant_failures_total",
			Help: "Total swallowed assistant failures",
		},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "igihozo_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "igihozo_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
