package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-billing/meridian/internal/billing/customers"
	"github.com/meridian-billing/meridian/internal/billing/invoices"
	"github.com/meridian-billing/meridian/internal/billing/quotations"
	"github.com/meridian-billing/meridian/internal/billing/receipts"
	"github.com/meridian-billing/meridian/internal/billing/reports"
	"github.com/meridian-billing/meridian/internal/observability"
	"github.com/meridian-billing/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	CustomersHandler  *customers.Handler
	QuotationsHandler *quotations.Handler
	InvoicesHandler   *invoices.Handler
	ReceiptsHandler   *receipts.Handler
	ReportsHandler    *reports.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router for the billing API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/quotations", params.QuotationsHandler.MountRoutes)
	r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	r.Route("/receipts", params.ReceiptsHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
