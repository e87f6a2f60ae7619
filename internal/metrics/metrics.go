package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the brief-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "brief",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brief",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brief",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	feedChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brief",
			Subsystem: "feed",
			Name:      "chunks_total",
			Help:      "Post fetch chunks issued while assembling feeds.",
		},
		[]string{"outcome"},
	)

	feedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "brief",
			Subsystem: "feed",
			Name:      "assembly_duration_seconds",
			Help:      "Duration of feed assembly.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	viewCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brief",
			Subsystem: "engagement",
			Name:      "view_cache_total",
			Help:      "View recordings answered by the in-process cache versus the store.",
		},
		[]string{"result"},
	)

	reminderRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brief",
			Subsystem: "reminder",
			Name:      "runs_total",
			Help:      "Reminder job runs.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		feedChunks,
		feedDuration,
		viewCache,
		reminderRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		method := strings.ToUpper(c.Method())
		route := c.Route().Path
		httpRequests.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// RecordFeedChunk counts one chunk query of a feed assembly.
func RecordFeedChunk(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	feedChunks.WithLabelValues(outcome).Inc()
}

func ObserveFeed(d time.Duration) {
	feedDuration.Observe(d.Seconds())
}

// RecordViewCache counts a view recording as a cache hit or miss.
func RecordViewCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	viewCache.WithLabelValues(result).Inc()
}

func RecordReminderRun(success bool) {
	reminderRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
}
