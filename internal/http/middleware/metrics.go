// Prometheus HTTP instrumentation. Labels stay bounded: the route label is
// the registered pattern (e.g. /api/v1/blocks/:ip) and every unmatched path
// shares one label, so scanners probing random URLs cannot grow the series.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formguard",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "formguard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		// Submission checks are sub-millisecond unless a store is slow.
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "formguard",
		Name:      "http_requests_inflight",
		Help:      "HTTP requests currently being served.",
	})

	// Verdicts and token configs are small; detection pages dominate the tail.
	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "formguard",
		Name:      "http_response_size_bytes",
		Help:      "HTTP response size in bytes.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B..1MiB
	}, []string{"method", "route"})

	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "formguard",
		Name:      "rate_limited_total",
		Help:      "Requests refused by the per-client rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, rateLimited)
}

// Metrics records request count, latency, in-flight requests and response
// size. Mount promhttp.Handler() on /metrics to expose them.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
