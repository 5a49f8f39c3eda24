package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics gathers the Prometheus metrics of the billing service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	documentsTotal  *prometheus.CounterVec
	paymentsTotal   prometheus.Counter
	autoPaidTotal   prometheus.Counter
	overdueTotal    prometheus.Counter
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics initialises the registry with the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_documents_created_total",
		Help: "Billing documents created by kind.",
	}, []string{"kind"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_payments_applied_total",
		Help: "Payments applied to invoices.",
	})
	autoPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_invoices_auto_paid_total",
		Help: "Invoices promoted to paid by a settling payment.",
	})
	overdue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_invoices_marked_overdue_total",
		Help: "Invoices moved to overdue by the scheduled scan.",
	})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_jobs_total",
		Help: "Background jobs by task type and outcome.",
	}, []string{"task", "status"})
	registry.MustRegister(requests, duration, documents, payments, autoPaid, overdue, jobs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		documentsTotal:  documents,
		paymentsTotal:   payments,
		autoPaidTotal:   autoPaid,
		overdueTotal:    overdue,
		jobsTotal:       jobs,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// DocumentCreated counts a new quotation, invoice, or receipt.
func (m *Metrics) DocumentCreated(kind string) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(kind).Inc()
}

// PaymentApplied counts one posted receipt.
func (m *Metrics) PaymentApplied(autoPaid bool) {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
	if autoPaid {
		m.autoPaidTotal.Inc()
	}
}

// InvoicesMarkedOverdue counts invoices flipped by the overdue scan.
func (m *Metrics) InvoicesMarkedOverdue(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueTotal.Add(float64(n))
}

// JobProcessed counts a background task run.
func (m *Metrics) JobProcessed(task, status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, status).Inc()
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
