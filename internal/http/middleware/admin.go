package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey admits requests whose X-Admin-Key matches the bcrypt hash. An
// empty hash rejects everything.
func AdminKey(hash string) gin.HandlerFunc {
	h := []byte(hash)
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if len(h) == 0 || key == "" || bcrypt.CompareHashAndPassword(h, []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "admin key required",
			})
			return
		}
		c.Next()
	}
}
