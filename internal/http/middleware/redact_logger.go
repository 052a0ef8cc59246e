package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger.
//
// MaskHeaders lists extra headers whose values are replaced by "[REDACTED]"
// (case-insensitive). Authorization, Cookie and Set-Cookie are always masked.
// Successful requests to SkipPaths (exact match) are not logged; health checks and
// scrapes would otherwise drown the submission traffic.
type RedactOptions struct {
	MaskHeaders []string
	SkipPaths   []string
}

var (
	// UUIDs go first so the phone pattern cannot eat their digit groups.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger writes one access log line per request with identifiers
// scrubbed from the query string and header values. Bodies are never logged:
// submission fields only reach the logs through the detection sink, already
// redacted. It also attaches a request-scoped logger for LoggerFrom.
//
// Level is info, warn for 4xx and error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := mask[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = scrub(strings.Join(vv, ", "))
		}

		reqID := RequestIDFrom(c)
		if reqID == "" {
			reqID = c.Writer.Header().Get(requestIDHeader)
		}
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}
		scoped := log.With().
			Str("request_id", reqID).
			Str("client_ip", ClientIPFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		status := c.Writer.Status()
		if _, ok := skip[c.Request.URL.Path]; ok && status < 400 {
			return
		}
		ev := scoped.Info()
		switch {
		case status >= 500:
			ev = scoped.Error()
		case status >= 400:
			ev = scoped.Warn()
		}
		if len(c.Errors) > 0 {
			ev = scoped.Error().Str("errors", c.Errors.String())
		}

		ev.
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
