package mygin

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func RecordPath(c *gin.Context) {
	url := c.Request.URL.String()
	for _, p := range c.Params {
		url = strings.Replace(url, p.Value, ":"+p.Key, 1)
	}
	c.Set("MatchedPath", url)
}

// Logger logs one line per request.
func Logger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		ev := l.Debug()
		if status >= 500 {
			ev = l.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.GetString("MatchedPath")).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("[Dashboard] Request")
	}
}
