package monitoring

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

	// QueryCounter counts sandbox outcomes: ok, rejected or failed.
	QueryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_clash_queries_total",
			Help: "Player SQL statements by outcome",
		},
		[]string{"outcome"},
	)

	RejectedKeywordCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_clash_rejected_keywords_total",
			Help: "Rejected statements by offending keyword",
		},
		[]string{"keyword"},
	)

	RoundAdvanceCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_clash_round_advances_total",
			Help: "Round advancements by the round that was completed",
		},
		[]string{"round"},
	)

	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_clash_submissions_total",
			Help: "Final submissions by correctness",
		},
		[]string{"correct"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(QueryCounter)
		prometheus.MustRegister(RejectedKeywordCounter)
		prometheus.MustRegister(RoundAdvanceCounter)
		prometheus.MustRegister(SubmissionCounter)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
