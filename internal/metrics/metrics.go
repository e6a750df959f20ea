package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daloamarket",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daloamarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daloamarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	listingsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daloamarket",
			Subsystem: "listings",
			Name:      "created_total",
			Help:      "Listings created, by publish mode (free, credit, pending).",
		},
		[]string{"mode"},
	)

	messagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daloamarket",
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Messages sent between users.",
		},
	)

	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daloamarket",
			Subsystem: "emails",
			Name:      "sent_total",
			Help:      "Transactional emails, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daloamarket",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Housekeeping job runs, by job and result.",
		},
		[]string{"job", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		listingsPublished,
		messagesSent,
		emailsSent,
		jobRuns,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, duration and in-flight gauge per route template.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		httpInFlight.Inc()
		start := time.Now()
		err := c.Next()
		httpInFlight.Dec()

		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		httpRequests.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordListingCreated counts a listing by publish mode.
func RecordListingCreated(mode string) {
	listingsPublished.WithLabelValues(mode).Inc()
}

func RecordMessageSent() {
	messagesSent.Inc()
}

// RecordEmail counts one email attempt.
func RecordEmail(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	emailsSent.WithLabelValues(kind, result).Inc()
}

// RecordJob counts one housekeeping run.
func RecordJob(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}
