package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nosan/embedded-cassandra-sub005/internal/metrics"
)

/**
 * HTTP request statistics middleware
 * @description
 * - Counts requests per route and records their duration
 * - Requests answered with status >= 400 count as errors
 * - The totals feed the /healthz response
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		metrics.RecordRequest(path, time.Since(start).Seconds(), c.Writer.Status())
	}
}

func GetTotalRequests() int64 {
	return metrics.GetTotalRequestCount()
}

func GetErrorRequests() int64 {
	return metrics.GetTotalErrorCount()
}
