package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	cases := []struct {
		name string
		hash string
		key  string
		want int
	}{
		{"valid key", string(hash), "let-me-in", http.StatusOK},
		{"wrong key", string(hash), "nope", http.StatusUnauthorized},
		{"missing key", string(hash), "", http.StatusUnauthorized},
		{"no hash configured", "", "let-me-in", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AdminKey(tc.hash))
			r.GET("/blocks", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/blocks", nil)
			if tc.key != "" {
				req.Header.Set(AdminKeyHeader, tc.key)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d; want %d", w.Code, tc.want)
			}
		})
	}
}
