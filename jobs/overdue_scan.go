package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-billing/meridian/internal/observability"
)

// InvoiceMarker is the slice of the invoice service the scan needs.
type InvoiceMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// ReportInvalidator drops cached report summaries after a scan that
// changed invoice statuses.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// OverdueScanner is the scheduled collaborator behind the sent to
// overdue transition. The state machine itself never moves documents on
// time.
type OverdueScanner struct {
	invoices InvoiceMarker
	reports  ReportInvalidator
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func NewOverdueScanner(invoices InvoiceMarker, reports ReportInvalidator, metrics *observability.Metrics, logger *slog.Logger) *OverdueScanner {
	return &OverdueScanner{invoices: invoices, reports: reports, metrics: metrics, logger: logger}
}

// Handle processes one TaskOverdueScan task.
func (s *OverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	n, err := s.invoices.MarkOverdue(ctx, asOf)
	if err != nil {
		s.metrics.JobProcessed(TaskOverdueScan, "error")
		s.logger.Error("overdue scan", slog.Any("error", err))
		return err
	}
	s.metrics.InvoicesMarkedOverdue(n)
	s.metrics.JobProcessed(TaskOverdueScan, "ok")

	if n > 0 && s.reports != nil {
		if err := s.reports.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}

	s.logger.Info("overdue scan complete",
		slog.Time("as_of", asOf), slog.Int64("marked", n))
	return nil
}
