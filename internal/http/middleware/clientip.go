package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-form-guard/internal/clientip"
)

const clientIPKey = "clientIP"

// ClientIP resolves the client address once per request with r and stores
// it for ClientIPFrom. A nil resolver stores the direct peer address.
func ClientIP(r *clientip.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ip string
		if r != nil {
			ip = r.Resolve(c.Request)
		} else if canon, ok := clientip.Canonical(c.RemoteIP()); ok {
			ip = canon
		}
		c.Set(clientIPKey, ip)
		c.Next()
	}
}

// ClientIPFrom returns the address stored by ClientIP, or gin's direct peer
// address when the middleware did not run.
func ClientIPFrom(c *gin.Context) string {
	if v, ok := c.Get(clientIPKey); ok {
		return asString(v)
	}
	return c.RemoteIP()
}
