// Package metrics provides Prometheus metrics for the chat API server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesCreated counts messages inserted, by message type.
	MessagesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patentchat_messages_created_total",
			Help: "Total number of messages stored",
		},
		[]string{"type"},
	)

	// IdempotentReplays counts writes answered from a stored response.
	IdempotentReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patentchat_idempotent_replays_total",
			Help: "Total number of writes answered from the idempotency store",
		},
		[]string{"scope"},
	)

	// ReadMarkers counts read marker upserts.
	ReadMarkers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patentchat_read_markers_total",
			Help: "Total number of conversation read markers written",
		},
	)

	// PagesServed counts history pages, split by whether a cursor was supplied.
	PagesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patentchat_history_pages_total",
			Help: "Total number of message history pages served",
		},
		[]string{"kind"},
	)

	// IdempotencyKeysPurged counts expired idempotency records removed.
	IdempotencyKeysPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patentchat_idempotency_keys_purged_total",
			Help: "Total number of expired idempotency records deleted",
		},
	)

	// RequestDuration tracks HTTP latency per route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patentchat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordPage increments the history page counter.
func RecordPage(withCursor bool) {
	kind := "initial"
	if withCursor {
		kind = "older"
	}
	PagesServed.WithLabelValues(kind).Inc()
}

// Middleware observes request latency labelled by the matched route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		RequestDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
