// Package metrics holds the Prometheus collectors of the API server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeClean    = "clean"
	OutcomeConflict = "conflict"
)

var (
	ConflictChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tiremarket",
		Name:      "conflict_checks_total",
		Help:      "Exception conflict checks by outcome.",
	}, []string{"outcome"})

	ExceptionMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tiremarket",
		Name:      "exception_mutations_total",
		Help:      "Agreement exception writes by action.",
	}, []string{"action"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tiremarket",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// ObserveConflictCheck counts one check that found n conflicts.
func ObserveConflictCheck(n int) {
	if n > 0 {
		ConflictChecks.WithLabelValues(OutcomeConflict).Inc()
		return
	}
	ConflictChecks.WithLabelValues(OutcomeClean).Inc()
}

// Middleware times every request under its route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
