package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ticket-pricing-service/pkg/metrics"
)

// MetricsMiddleware records request counts and latency per route. The
// route template is used as the path label so UUIDs do not explode
// cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}
