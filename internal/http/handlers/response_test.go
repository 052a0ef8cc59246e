package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelopeRouter mounts one failing route behind a fake request ID and a
// request-scoped logger writing to buf.
func envelopeRouter(buf *bytes.Buffer, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	lg := zerolog.New(buf)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-env")
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/x", h)
	return r
}

func TestFailErr_Envelope(t *testing.T) {
	cause := errors.New("sqlite: database is locked")

	cases := []struct {
		name    string
		status  int
		code    string
		level   string
		logged  bool
		handler gin.HandlerFunc
	}{
		{
			name: "check failed", status: http.StatusInternalServerError, code: ErrCodeCheckFailed,
			level: "error", logged: true,
			handler: func(c *gin.Context) {
				failErr(c, http.StatusInternalServerError, ErrCodeCheckFailed, "submission could not be checked", cause)
			},
		},
		{
			name: "token store down", status: http.StatusServiceUnavailable, code: ErrCodeTokenUnavailable,
			level: "warn", logged: true,
			handler: func(c *gin.Context) {
				failErr(c, http.StatusServiceUnavailable, ErrCodeTokenUnavailable, "challenge unavailable", cause)
			},
		},
		{
			name: "client error", status: http.StatusNotFound, code: ErrCodeNotFound,
			handler: func(c *gin.Context) {
				Fail(c, http.StatusNotFound, ErrCodeNotFound, "block not found")
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := httptest.NewRecorder()
			envelopeRouter(&buf, tc.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			require.Equal(t, tc.status, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, "rid-env", resp.RequestID)
			assert.Equal(t, tc.code, resp.Code)
			assert.NotContains(t, w.Body.String(), "database is locked")

			if !tc.logged {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), `"level":"`+tc.level+`"`)
			assert.Contains(t, buf.String(), "database is locked")
			assert.Contains(t, buf.String(), `"code":"`+tc.code+`"`)
		})
	}
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/intent", func(c *gin.Context) {
		ok(c, http.StatusCreated, IntentResponse{Token: "tok"})
	})
	r.DELETE("/blocks/:ip", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/intent", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok", decode[IntentResponse](t, w).Token)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/blocks/192.0.2.1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}
