package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CommandKey is the gin context key handlers set to the command they ran.
// It keeps the command label bounded regardless of request paths.
const CommandKey = "docfs.command"

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		command := c.GetString(CommandKey)
		if command == "" {
			command = "none"
		}

		metrics.RecordHTTPRequest(
			method,
			command,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			reqSize,
			int64(c.Writer.Size()),
		)
	}
}

// Timer measures a packager run
type Timer struct {
	start    time.Time
	metrics  *Metrics
	packager string
}

// NewTimer creates a new timer. A nil metrics makes Stop a no-op.
func NewTimer(metrics *Metrics, packager string) *Timer {
	return &Timer{
		start:    time.Now(),
		metrics:  metrics,
		packager: packager,
	}
}

// Stop stops the timer and records the duration
func (t *Timer) Stop(status string) time.Duration {
	duration := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordPackagerRun(t.packager, status, duration)
	}
	return duration
}
