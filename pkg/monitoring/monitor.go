package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AggregationTotal 进度聚合次数，按触发来源与结果区分
	AggregationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_aggregations_total",
			Help: "Progress aggregator runs by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "progress_aggregation_duration_seconds",
			Help:    "Duration of progress aggregator transactions",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	EnrollmentCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollment_completions_total",
			Help: "Enrollments that transitioned to COMPLETED",
		},
	)

	// SessionChecks 会话校验结果，reason 为空表示通过
	SessionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_checks_total",
			Help: "Session guard outcomes",
		},
		[]string{"outcome", "reason"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AggregationTotal)
	prometheus.MustRegister(AggregationDuration)
	prometheus.MustRegister(EnrollmentCompletions)
	prometheus.MustRegister(SessionChecks)
}

func MetricsMiddleware() gin.HandlerFunc {
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

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
