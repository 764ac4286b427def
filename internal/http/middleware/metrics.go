package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that matched no registered route, so raw
// URLs never become label values.
const unmatchedRoute = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nabostylisten_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// Upper buckets cover requests that wait on the payment provider.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nabostylisten_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and area.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "area"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nabostylisten_http_requests_inflight",
			Help: "HTTP requests currently being served.",
		},
	)

	// Exports are the large responses.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nabostylisten_http_response_size_bytes",
			Help:    "HTTP response size in bytes by route.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// MetricsOptions configures Metrics.
type MetricsOptions struct {
	// SkipPaths are not instrumented (metrics scrapes, health checks).
	SkipPaths []string
}

// Metrics records request count, latency, concurrency and response size.
// The route label is c.FullPath(); the area label is the first segment
// after the API version (services, bookings, admin, ...).
func Metrics(opts ...MetricsOptions) gin.HandlerFunc {
	skip := map[string]struct{}{}
	for _, o := range opts {
		for _, p := range o.SkipPaths {
			skip[p] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
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
		httpLat.WithLabelValues(method, route, routeArea(route)).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(route).Observe(float64(size))
		}
	}
}

// routeArea returns the resource segment of a route: "/api/v1/bookings/:id"
// gives "bookings". Version segments (v1, v2) are skipped.
func routeArea(route string) string {
	if route == unmatchedRoute {
		return route
	}
	for _, seg := range strings.Split(strings.Trim(route, "/"), "/") {
		switch {
		case seg == "" || seg == "api":
			continue
		case len(seg) > 1 && seg[0] == 'v' && seg[1] >= '0' && seg[1] <= '9':
			continue
		case seg[0] == ':' || seg[0] == '*':
			return "root"
		default:
			return seg
		}
	}
	return "root"
}
