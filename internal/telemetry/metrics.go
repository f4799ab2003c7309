// Package telemetry provides Prometheus instrumentation for the decider.
//
// Collectors live in a custom registry rather than the global default so only
// decider metrics appear on /metrics and tests can build fresh instances.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error kinds used as the "kind" label of ErrorsTotal.
const (
	ErrorUnknownFeature = "unknown_feature"
	ErrorEval           = "eval"
)

// Metrics holds all collectors. Methods are safe to call on a nil *Metrics,
// which records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	DecisionsTotal      *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	ReloadsTotal        *prometheus.CounterVec
	TableFeatures       prometheus.Gauge
	TableLoadedAt       prometheus.Gauge
}

// New creates and registers all metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_http_requests_total",
			Help: "Total HTTP requests.",
		}, []string{"route", "method", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decider_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_decisions_total",
			Help: "Total decisions by resolving decision maker and outcome.",
		}, []string{"decision_maker", "enabled"}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_choose_errors_total",
			Help: "Total failed choose calls by error kind.",
		}, []string{"kind"}),

		ReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_reloads_total",
			Help: "Total configuration reloads by result.",
		}, []string{"result"}),

		TableFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decider_table_features",
			Help: "Number of features in the active configuration table.",
		}),

		TableLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decider_table_loaded_timestamp_seconds",
			Help: "Unix time the active configuration table was loaded.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DecisionsTotal,
		m.ErrorsTotal,
		m.ReloadsTotal,
		m.TableFeatures,
		m.TableLoadedAt,
	)
	return m
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveDecision counts one successful decision.
func (m *Metrics) ObserveDecision(decisionMaker string, enabled bool) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(decisionMaker, strconv.FormatBool(enabled)).Inc()
}

// ObserveError counts one failed choose call.
func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveReload records a reload attempt. On success the table gauges are updated.
func (m *Metrics) ObserveReload(ok bool, features int, loadedAt time.Time) {
	if m == nil {
		return
	}
	if !ok {
		m.ReloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.ReloadsTotal.WithLabelValues("success").Inc()
	m.SetTable(features, loadedAt)
}

// SetTable updates the table gauges.
func (m *Metrics) SetTable(features int, loadedAt time.Time) {
	if m == nil {
		return
	}
	m.TableFeatures.Set(float64(features))
	m.TableLoadedAt.Set(float64(loadedAt.Unix()))
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		// the pattern is only complete once routing has finished
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
