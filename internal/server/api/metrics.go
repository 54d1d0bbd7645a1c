package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_auth_events_total",
			Help: "Registration, login and logout attempts by outcome.",
		},
		[]string{"event", "outcome"},
	)

	uploadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_uploaded_bytes_total",
		Help: "Total number of bytes stored by successful uploads.",
	})

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_downloads_total",
			Help: "Download requests by outcome.",
		},
		[]string{"outcome"},
	)
)

// Metrics records request counts and latency per route. The route pattern
// (e.g. /download/:id) is used as the path label to keep cardinality bounded.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			httpRequestsTotal.WithLabelValues(method, path, status).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

func recordAuth(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	authEventsTotal.WithLabelValues(event, outcome).Inc()
}
