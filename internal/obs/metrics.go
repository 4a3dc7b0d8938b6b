package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

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

	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Committed ledger transactions by type.",
		},
		[]string{"type"},
	)

	postingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Journal entries written.",
	})
)

// Init registers all metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		transactionsTotal,
		postingsTotal,
	)
}

// Handler serves /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransaction records a committed transaction and its posting count.
func ObserveTransaction(txType string, postings int) {
	transactionsTotal.WithLabelValues(txType).Inc()
	postingsTotal.Add(float64(postings))
}

// Instrument wraps a handler with RPS, latency and in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)
		path := CanonicalPath(r.URL.Path)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses account identifiers out of the metric label so
// label cardinality stays bounded.
func CanonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	parts := strings.Split(p, "/")
	// /v1/accounts/{id} and /v1/accounts/{id}/balance
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "accounts" && parts[3] != "" && parts[3] != "pockets" {
		if len(parts) == 4 {
			return "/v1/accounts/:id"
		}
		if len(parts) == 5 && parts[4] == "balance" {
			return "/v1/accounts/:id/balance"
		}
		if len(parts) == 5 && parts[4] == "transactions" {
			return "/v1/accounts/:id/transactions"
		}
	}
	return p
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
