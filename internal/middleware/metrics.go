package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/pkg/metrics"
)

// Metrics records request latency per route. Unmatched paths share one label
// to keep cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
