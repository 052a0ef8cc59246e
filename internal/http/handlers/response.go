// Package handlers implements the HTTP endpoints of the form guard service:
// submission checking, the challenge/intent token protocol, the detection log
// and block administration.
//
// Every error response uses the ErrorResponse envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "block not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-form-guard/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"block not found"`
}

// fail aborts with the error envelope. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failErr(c, status, code, msg, nil)
}

// failErr is fail with a cause. The cause is logged, never sent: clients of
// a spam filter get the stable code and msg only.
func failErr(c *gin.Context, status int, code, msg string, err error) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		ev := lg.Error()
		if status == http.StatusServiceUnavailable {
			ev = lg.Warn()
		}
		ev.Err(err).
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
