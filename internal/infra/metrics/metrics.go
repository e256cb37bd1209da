package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learningly_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learningly_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learningly_payment_intents_total",
			Help: "Payment intent creation attempts by result (created, free_order, failed)",
		},
		[]string{"result"},
	)
	GrantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learningly_usage_grants_total",
			Help: "Plan credits applied to usage records by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	ConsumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learningly_usage_consume_total",
			Help: "Feature usage decrements by feature and result",
		},
		[]string{"feature", "result"},
	)
	ResetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learningly_usage_resets_total",
			Help: "Usage records reset to the baseline, by trigger",
		},
		[]string{"trigger"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PaymentIntentsTotal,
		GrantsTotal,
		ConsumeTotal,
		ResetsTotal,
	)
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
