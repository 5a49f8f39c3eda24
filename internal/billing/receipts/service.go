package receipts

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-billing/meridian/internal/billing/invoices"
	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/numbering"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/observability"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

type Service struct {
	repo      Repository
	sequencer *numbering.Sequencer
	metrics   *observability.Metrics
	validate  *validator.Validate
}

func NewService(repo Repository, sequencer *numbering.Sequencer, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, sequencer: sequencer, metrics: metrics, validate: validator.New()}
}

// Create records a payment. The receipt row and the invoice's ledger
// update commit in one transaction with the invoice row locked, so two
// receipts posted concurrently against the same invoice serialize
// rather than losing an update.
func (s *Service) Create(ctx context.Context, req CreateReceiptRequest, createdBy int64) (*Receipt, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	amount, err := money.FromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount", httpx.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", httpx.ErrValidation)
	}

	number, err := s.sequencer.Next(ctx, numbering.KindReceipt)
	if err != nil {
		return nil, fmt.Errorf("allocate receipt number: %w", err)
	}

	var id int64
	var settled bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoiceForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		wasPaid := inv.Status == status.InvoicePaid
		if err := invoices.ApplyPayment(inv, amount); err != nil {
			return err
		}
		settled = !wasPaid && inv.Status == status.InvoicePaid

		rec := Receipt{
			Number:          number,
			InvoiceID:       inv.ID,
			CustomerID:      inv.CustomerID,
			Amount:          amount,
			PaymentMethod:   invoices.PaymentMethod(req.PaymentMethod),
			PaymentDate:     req.PaymentDate,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			CreatedBy:       createdBy,
		}
		if id, err = repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		return repo.SettleInvoice(ctx, inv.ID, inv.PaidAmount, inv.Status)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("receipt")
	s.metrics.PaymentApplied(settled)
	return s.repo.Get(ctx, id)
}

// Update edits the descriptive fields only.
func (s *Service) Update(ctx context.Context, id int64, req UpdateReceiptRequest) (*Receipt, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	updates := make(map[string]interface{})
	if req.ReferenceNumber != nil {
		updates["reference_number"] = *req.ReferenceNumber
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateDescriptive(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update receipt: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Receipt, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListReceiptsRequest) ([]Receipt, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return s.repo.List(ctx, req)
}
