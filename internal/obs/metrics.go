package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics shared by every route.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Portal domain metrics.
var (
	BroadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_broadcasts_total",
		Help: "Announcements fanned out to observers.",
	})

	ObserverFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_observer_failures_total",
		Help: "Observer deliveries that panicked and were swallowed.",
	})

	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_payments_total",
			Help: "Payment attempts by service and outcome.",
		},
		[]string{"service", "outcome"},
	)

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_rate_limited_total",
		Help: "Requests rejected by the identity rate limiter.",
	})

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_ready",
		Help: "1 when the service reports ready.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		BroadcastsTotal, ObserverFailuresTotal, PaymentsTotal, RateLimitedTotal,
		ready,
	)
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Handler exposes the Prometheus endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for the metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
