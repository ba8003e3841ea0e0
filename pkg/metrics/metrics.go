// Package metrics records request and query metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector receives metric events.
type Collector interface {
	// ObserveRequest records one finished HTTP request.
	ObserveRequest(method, route string, status int, elapsed time.Duration)
	// ObserveQuery records one executed data browser query.
	ObserveQuery(model, media string, rows int, elapsed time.Duration)
	// Handler serves the collected metrics.
	Handler() http.Handler
}

// PrometheusCollector implements Collector on its own registry.
type PrometheusCollector struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	queryRows       *prometheus.HistogramVec
}

// NewPrometheusCollector creates a collector with Go and process metrics
// registered alongside the data browser ones.
func NewPrometheusCollector() *PrometheusCollector {
	p := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "databrowser_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "databrowser_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		queryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "databrowser_queries_total",
				Help: "Total number of executed queries",
			},
			[]string{"model", "media"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "databrowser_query_duration_seconds",
				Help:    "Query execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		queryRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "databrowser_query_rows",
				Help:    "Rows returned per query",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"model"},
		),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requestTotal,
		p.requestDuration,
		p.queryTotal,
		p.queryDuration,
		p.queryRows,
	)
	return p
}

func (p *PrometheusCollector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	p.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (p *PrometheusCollector) ObserveQuery(model, media string, rows int, elapsed time.Duration) {
	p.queryTotal.WithLabelValues(model, media).Inc()
	p.queryDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	p.queryRows.WithLabelValues(model).Observe(float64(rows))
}

func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// NoOpCollector discards everything.
type NoOpCollector struct{}

func (NoOpCollector) ObserveRequest(string, string, int, time.Duration) {}
func (NoOpCollector) ObserveQuery(string, string, int, time.Duration)   {}
func (NoOpCollector) Handler() http.Handler                             { return http.NotFoundHandler() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// routeName is the mux path template of the matched route, so that metrics
// stay bounded regardless of model names and field strings.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Middleware records every request passing through a mux router.
func Middleware(c Collector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			c.ObserveRequest(r.Method, routeName(r), rec.status, time.Since(start))
		})
	}
}
