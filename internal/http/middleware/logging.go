// Package middleware contains the Gin middleware of the form guard HTTP
// layer: correlation IDs, redacting access logs, panic recovery, client
// address resolution, rate limiting, admin authentication, security headers
// and Prometheus instrumentation.
//
// Recommended order:
//
//	RequestID → ClientIP → RedactingLogger → Recovery → ...
//
// so that logs and error bodies carry the correlation ID and the resolved
// client address.
package middleware

import (
	"net/http"
	"runtime/debug"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxRequestIDLength bounds an accepted inbound correlation ID.
	maxRequestIDLength = 64
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// RequestID keeps a well-formed inbound X-Request-ID and otherwise generates
// a UUIDv4. The ID is stored in the context and echoed on the response.
// Inbound IDs longer than 64 bytes or outside [A-Za-z0-9._-] are replaced so
// form spammers cannot smuggle content into access logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID of the request, if any.
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Recovery converts panics into the standard JSON 500 envelope and logs the
// stack on the request-scoped logger. When the response has already been
// written only the status is set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by RedactingLogger,
// or the global logger tagged with the request ID when none is attached.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	ctx := log.With()
	if rid := RequestIDFrom(c); rid != "" {
		ctx = ctx.Str("request_id", rid)
	}
	l := ctx.Logger()
	return &l
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.':
		default:
			return false
		}
	}
	return true
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to at most max bytes on a rune boundary and appends an
// ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
