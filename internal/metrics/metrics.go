// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	LiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cbt_live_connections",
			Help: "Open real-time connections by role",
		},
		[]string{"role"},
	)

	LiveEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_live_events_total",
			Help: "Real-time events received, by event name",
		},
		[]string{"event"},
	)

	SessionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_session_resolutions_total",
			Help: "Finished/unfinished resolutions of student sessions, by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	QuestionsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cbt_questions_extracted_total",
			Help: "Questions accepted by the document extractor",
		},
	)

	ExtractionMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cbt_extraction_answer_mismatch_total",
			Help: "Documents whose question block count differed from their answer letter count",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			LiveConnections,
			LiveEvents,
			SessionResolutions,
			QuestionsExtracted,
			ExtractionMismatches,
		)
	})
}

// Middleware records request counts and latencies per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
