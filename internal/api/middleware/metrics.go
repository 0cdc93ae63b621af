package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/memora/internal/metrics"
)

// MetricsCollector keeps the request and error totals shown on /stats and
// feeds per-route counters to Prometheus.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
	prom         *metrics.Metrics
}

func NewMetricsCollector(requestCount, errorCount *atomic.Int64, m *metrics.Metrics) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
		prom:         m,
	}
}

func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
		// The route pattern is only complete after routing has finished.
		mc.prom.ObserveHTTP(routePattern(r), r.Method, rw.statusCode, time.Since(start))
	})
}
