package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "circlevault",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circlevault",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "circlevault",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	deposits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circlevault",
			Subsystem: "engine",
			Name:      "deposits_total",
			Help:      "Total number of deposit attempts by vault kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	depositedAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circlevault",
			Subsystem: "engine",
			Name:      "deposited_amount_total",
			Help:      "Sum of committed deposit amounts in the smallest token unit.",
		},
		[]string{"kind"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circlevault",
			Subsystem: "engine",
			Name:      "withdrawals_total",
			Help:      "Total number of withdrawal attempts by vault kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	vaultsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circlevault",
			Subsystem: "engine",
			Name:      "vaults_created_total",
			Help:      "Total number of vaults created by kind.",
		},
		[]string{"kind"},
	)

	vaultsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "circlevault",
			Subsystem: "engine",
			Name:      "vaults_expired_total",
			Help:      "Total number of vaults the sweeper marked expired.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		deposits,
		depositedAmount,
		withdrawals,
		vaultsCreated,
		vaultsExpired,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordDeposit counts a deposit attempt and, when committed, its amount.
func RecordDeposit(kind string, amount int64, err error) {
	deposits.WithLabelValues(kind, outcome(err)).Inc()
	if err == nil {
		depositedAmount.WithLabelValues(kind).Add(float64(amount))
	}
}

// RecordWithdrawal counts a withdrawal attempt.
func RecordWithdrawal(kind string, err error) {
	withdrawals.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordVaultCreated counts a successful vault creation.
func RecordVaultCreated(kind string) {
	vaultsCreated.WithLabelValues(kind).Inc()
}

// RecordVaultExpired counts a sweep that marked a vault expired.
func RecordVaultExpired() {
	vaultsExpired.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "rejected"
	}
	return "committed"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "users":
		if len(parts) == 1 {
			return "/users"
		}
		if len(parts) == 2 {
			return "/users/:identity"
		}
		return "/users/:identity/" + parts[2]
	case "vaults":
		if len(parts) == 1 {
			return "/vaults"
		}
		if len(parts) == 2 {
			return "/vaults/:key"
		}
		return "/vaults/:key/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
