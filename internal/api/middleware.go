package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PlatformHeader is set by the native shells to identify themselves
const PlatformHeader = "X-Platform"

var mobileAgents = []string{"android", "iphone", "ipad", "ipod", "mobile"}

// IsMobile reports whether the request comes from the iOS or Android app,
// or from a mobile browser
func IsMobile(r *http.Request) bool {
	switch strings.ToLower(r.Header.Get(PlatformHeader)) {
	case "ios", "android":
		return true
	}
	ua := strings.ToLower(r.UserAgent())
	for _, m := range mobileAgents {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// MobileOnly rejects non-mobile clients with 403 when required is set
func MobileOnly(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required && !IsMobile(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "participant features are only available in the mobile app",
			})
			return
		}
		c.Next()
	}
}

// Logger logs one line per request
func Logger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Debug()
		}
		event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Msg("Request processed")
	}
}
