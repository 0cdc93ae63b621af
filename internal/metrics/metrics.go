// Package metrics owns the Prometheus registry for the service.
//
// All methods are safe to call on a nil *Metrics, so components can be
// constructed without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memora"

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	thinkTotal         *prometheus.CounterVec
	thinkDuration      prometheus.Histogram
	tasksSubmitted     *prometheus.CounterVec
	tasksProcessed     *prometheus.CounterVec
	opinionsPersisted  prometheus.Counter
	extractionFailures prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		thinkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "think_total",
			Help:      "Think calls by outcome.",
		}, []string{"outcome"}),
		thinkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "think_duration_seconds",
			Help:      "Latency of think calls including retrieval and generation.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		tasksSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Background tasks submitted by outcome.",
		}, []string{"outcome"}),
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Background tasks processed by type and outcome.",
		}, []string{"type", "outcome"}),
		opinionsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opinions_persisted_total",
			Help:      "Opinion facts written after extraction.",
		}),
		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opinion_extraction_failures_total",
			Help:      "Opinion extraction calls that failed or returned invalid output.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.thinkTotal,
		m.thinkDuration,
		m.tasksSubmitted,
		m.tasksProcessed,
		m.opinionsPersisted,
		m.extractionFailures,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveThink(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.thinkTotal.WithLabelValues(outcome).Inc()
	m.thinkDuration.Observe(d.Seconds())
}

func (m *Metrics) TaskSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.tasksSubmitted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TaskProcessed(taskType, outcome string) {
	if m == nil {
		return
	}
	m.tasksProcessed.WithLabelValues(taskType, outcome).Inc()
}

func (m *Metrics) OpinionsPersisted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.opinionsPersisted.Add(float64(n))
}

func (m *Metrics) ExtractionFailed() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func statusCode(s int) string {
	switch {
	case s >= 500:
		return "5xx"
	case s >= 400:
		return "4xx"
	case s >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
