package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultCSP locks down JSON responses: nothing may load and no page may
// frame them.
const DefaultCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // defaults to 180 days
	NoStore      bool          // Cache-Control: no-store on every response
	EnablePolicy bool          // Permissions-Policy and X-Permitted-Cross-Domain-Policies
	CSP          string        // Content-Security-Policy; empty disables it
	CSPExempt    []string      // path prefixes served without CSP (e.g. /swagger/)
}

// SecurityHeaders adds hardening headers for the JSON API: nosniff, DENY
// framing and no-referrer always; CSP outside the exempt prefixes; feature
// policies, no-store and HSTS (HTTPS requests only) when enabled.
// X-Request-ID is exposed to browser clients.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.CSP != "" && !hasAnyPrefix(c.Request.URL.Path, opt.CSPExempt) {
			h.Set("Content-Security-Policy", opt.CSP)
		}
		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			setNoStore(h)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			appendToken(h, "Access-Control-Expose-Headers", requestIDHeader)
		}
		c.Next()
	}
}

// NoStore marks responses of a route group as uncacheable. Proof tokens and
// admin data are served through it.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		setNoStore(c.Writer.Header())
		c.Next()
	}
}

func setNoStore(h http.Header) {
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// appendToken adds tok to the comma-separated header key unless present.
func appendToken(h http.Header, key, tok string) {
	cur := h.Get(key)
	if cur == "" {
		h.Set(key, tok)
		return
	}
	for _, p := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(p), tok) {
			return
		}
	}
	h.Set(key, cur+", "+tok)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isHTTPS reports whether the request arrived over TLS directly or through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
