package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	batchItems      *prometheus.CounterVec
	sweepRemoved    *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_total",
		Help: "Record state transitions by entity and transition",
	}, []string{"entity", "transition"})

	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_items_total",
		Help: "Batch items processed by operation and outcome",
	}, []string{"operation", "outcome"})

	sweepRemoved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_removed_total",
		Help: "Records removed or repaired by background sweeps",
	}, []string{"sweep"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_duration_seconds",
		Help:    "Latency of record store reads and writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, batchItems, sweepRemoved, storeDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitions:     transitions,
		batchItems:      batchItems,
		sweepRemoved:    sweepRemoved,
		storeDuration:   storeDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordTransition counts a lifecycle transition.
func (m *MetricsService) RecordTransition(entity, transition string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, transition).Inc()
}

// RecordBatchItem counts one batch item outcome.
func (m *MetricsService) RecordBatchItem(operation, outcome string) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(operation, outcome).Inc()
}

// RecordSweepRemoved adds the number of records a sweep removed.
func (m *MetricsService) RecordSweepRemoved(sweep string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sweepRemoved.WithLabelValues(sweep).Add(float64(count))
}

// ObserveStoreOperation records backend latency.
func (m *MetricsService) ObserveStoreOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
