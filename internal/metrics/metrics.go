// Package metrics exposes Prometheus instrumentation for the store and the
// HTTP surface on a dedicated registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stock_pro/internal/inventory"
)

const namespace = "stockpro"

// Outcomes recorded for store mutations.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the collectors. It implements inventory.Recorder.
type Metrics struct {
	registry        *prometheus.Registry
	mutations       *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New builds the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "mutations_total",
			Help:      "Store mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		persistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing all collections to the backing store.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations,
		m.persistDuration,
		m.requests,
		m.requestDuration,
	)
	return m
}

// ObserveMutation counts a finished mutation.
func (m *Metrics) ObserveMutation(operation string, err error) {
	m.mutations.WithLabelValues(operation, outcome(err)).Inc()
}

// ObservePersist records how long a full persist took.
func (m *Metrics) ObservePersist(elapsed time.Duration, err error) {
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeError
	}
	m.persistDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// outcome separates caller mistakes from infrastructure failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, inventory.ErrValidation),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, inventory.ErrDuplicateSKU),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrNotLoaded):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
