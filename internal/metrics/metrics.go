// Package metrics provides Prometheus instrumentation for the API and the
// reservation engine. Wire Middleware into the router and mount Handler at
// /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "market",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	// ReservationRetries counts optimistic write retries after a version
	// conflict, labelled by operation (reserve|release|mark_sold).
	ReservationRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "inventory",
			Name:      "reservation_retries_total",
			Help:      "Version-conflict retries in the reservation engine.",
		},
		[]string{"op"},
	)

	// ReservationFailures counts reservation outcomes that surfaced to the
	// caller as errors, labelled by reason.
	ReservationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "inventory",
			Name:      "reservation_failures_total",
			Help:      "Failed reservation engine operations by reason.",
		},
		[]string{"op", "reason"},
	)
)

func init() {
	prometheus.MustRegister(RequestDuration, RequestTotal, ReservationRetries, ReservationFailures)
}

func Handler() http.Handler { return promhttp.Handler() }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.status)
		RequestTotal.WithLabelValues(r.Method, status).Inc()
		RequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
	})
}
