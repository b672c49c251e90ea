package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	swapMetricsOnce sync.Once
	swapRegistry    *SwapMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record RPC
// method activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fairswap",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fairswap",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "fairswap",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fairswap",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an RPC call. code is the JSON-RPC error code,
// zero on success.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// SwapMetrics captures fair-swap engine activity.
type SwapMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	openOffers prometheus.Gauge
}

// Swap returns the singleton metrics registry for the fair-swap engine.
func Swap() *SwapMetrics {
	swapMetricsOnce.Do(func() {
		swapRegistry = &SwapMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fairswap",
				Name:      "operations_total",
				Help:      "Count of fair-swap operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fairswap",
				Name:      "operation_errors_total",
				Help:      "Count of failed fair-swap operations segmented by operation and reason.",
			}, []string{"operation", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "fairswap",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for fair-swap operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			openOffers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "fairswap",
				Name:      "open_offers",
				Help:      "Number of offers currently holding escrowed funds.",
			}),
		}
		prometheus.MustRegister(
			swapRegistry.operations,
			swapRegistry.errors,
			swapRegistry.latency,
			swapRegistry.openOffers,
		)
	})
	return swapRegistry
}

// Observe records one engine operation. reason is a stable classification of
// the failure and is ignored when the operation succeeded.
func (m *SwapMetrics) Observe(operation string, duration time.Duration, reason string) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if reason != "" {
		outcome = "error"
		m.errors.WithLabelValues(op, reason).Inc()
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// OfferOpened and OfferClosed track the open offer gauge.
func (m *SwapMetrics) OfferOpened() {
	if m == nil {
		return
	}
	m.openOffers.Inc()
}

func (m *SwapMetrics) OfferClosed() {
	if m == nil {
		return
	}
	m.openOffers.Dec()
}

// SetOpenOffers resets the gauge, typically after loading state at startup.
func (m *SwapMetrics) SetOpenOffers(n int) {
	if m == nil {
		return
	}
	m.openOffers.Set(float64(n))
}
