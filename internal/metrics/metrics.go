package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// StoreOperationsTotal counts roster store calls by operation and outcome.
	StoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_store_operations_total",
		Help: "The total number of roster store operations by result",
	}, []string{"operation", "result"})

	// StoreOperationLatency tracks how long each roster statement takes.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_store_operation_latency_seconds",
		Help:    "Latency of roster store statements",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// HTTPRateLimitedTotal counts requests rejected by the rate limiter per roster operation.
	HTTPRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_http_rate_limited_total",
		Help: "The total number of HTTP requests rejected by the rate limiter",
	}, []string{"operation"})

	// HTTPRequestsTotal counts served roster requests by operation and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_http_requests_total",
		Help: "The total number of roster HTTP requests by operation and status",
	}, []string{"operation", "status"})

	// HTTPRequestLatency tracks roster request latency by operation and status code.
	HTTPRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_http_request_latency_seconds",
		Help:    "Latency of roster HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// ObserveOperation records the outcome and duration of a store operation started at start.
func ObserveOperation(operation string, start time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}

	StoreOperationsTotal.WithLabelValues(operation, result).Inc()
	StoreOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveRequest records a served request for the given roster operation.
func ObserveRequest(operation string, status int, start time.Time) {
	code := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(operation, code).Inc()
	HTTPRequestLatency.WithLabelValues(operation, code).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
