// Package httpapi wires the HTTP transport (Gin) to the form guard handlers.
// It centralizes the cross-cutting concerns: tracing, correlation IDs,
// client address resolution, logging/redaction, panic recovery, metrics,
// rate limiting, compression, CORS and security headers.
//
// Route groups under the API base path:
//   - public:     POST /submissions
//   - browser:    /challenge, /challenge/refresh, /intent, /honeypot (no-store)
//   - admin:      /detections, /blocks[/{ip}], /honeypot/regenerate (X-Admin-Key, only when ADMIN_KEY_HASH is set)
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-form-guard/docs" // registers the OpenAPI document
	"github.com/tbourn/go-form-guard/internal/clientip"
	"github.com/tbourn/go-form-guard/internal/config"
	"github.com/tbourn/go-form-guard/internal/http/handlers"
	"github.com/tbourn/go-form-guard/internal/http/middleware"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After"}
)

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. ClientIP: resolve the visitor address once (trusted proxies only)
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Rate limiter (per resolved client address)
//  9. Gzip, CORS and security headers
func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, resolver *clientip.Resolver, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIP(resolver))
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.AdminKeyHeader},
		SkipPaths:   []string{"/health", "/metrics"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	useCORS(r, cfg.CORS.AllowedOrigins)

	// HSTS only when enabled and the request is HTTPS
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		CSP:          middleware.DefaultCSP,
		CSPExempt:    []string{"/swagger/"},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.POST("/submissions", h.CheckSubmission)

	browser := api.Group("", middleware.NoStore())
	{
		browser.GET("/challenge", h.GetChallenge)
		browser.POST("/challenge/refresh", h.RefreshChallenge)
		browser.POST("/intent", h.IssueIntent)
		browser.GET("/honeypot", h.GetHoneypot)
	}

	if cfg.Security.AdminKeyHash == "" {
		return
	}
	admin := api.Group("", middleware.AdminKey(cfg.Security.AdminKeyHash), middleware.NoStore())
	{
		admin.GET("/detections", h.ListDetections)

		admin.GET("/blocks", h.ListBlocks)
		admin.GET("/blocks/:ip", h.GetBlock)
		admin.PUT("/blocks/:ip", h.PutBlock)
		admin.DELETE("/blocks/:ip", h.DeleteBlock)

		admin.POST("/honeypot/regenerate", h.RegenerateHoneypot)
	}
}

// useCORS installs the CORS posture: allow all origins when none are
// configured, otherwise echo allow-listed origins.
func useCORS(r *gin.Engine, origins []string) {
	if len(origins) == 0 {
		// Force ACAO: * even without an Origin header (health checks, tests).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	// Credentials stay on so the intent cookie travels with cross-origin posts.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExpose,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Reads past the cap error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
