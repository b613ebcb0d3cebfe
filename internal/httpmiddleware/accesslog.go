package httpmiddleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccessLog writes one logrus entry per request, skipping the given paths.
func AccessLog(log *logrus.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	entry := log.WithFields(logrus.Fields{"module": "http", "scope": "access"})
	return func(c *gin.Context) {
		if skipped[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if p, ok := c.Get("principal"); ok {
			fields["principal"] = p
		}
		e := entry.WithFields(fields)
		switch {
		case len(c.Errors) > 0:
			e.Error(c.Errors.String())
		case c.Writer.Status() >= 500:
			e.Warn("request failed")
		default:
			e.Info("request")
		}
	}
}
