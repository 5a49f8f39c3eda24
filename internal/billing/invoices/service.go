package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-billing/meridian/internal/billing/calc"
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

func parseItems(reqs []CreateItemReq) ([]Item, error) {
	items := make([]Item, 0, len(reqs))
	for i, req := range reqs {
		qty := money.FromFloat(1)
		if req.Quantity != "" {
			parsed, err := money.FromString(req.Quantity)
			if err != nil {
				return nil, fmt.Errorf("%w: item %d quantity: %v", httpx.ErrValidation, i+1, err)
			}
			qty = parsed
		}
		if qty.IsNegative() {
			return nil, fmt.Errorf("%w: item %d quantity must not be negative", httpx.ErrValidation, i+1)
		}
		price, err := money.FromString(req.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d unit price: %v", httpx.ErrValidation, i+1, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d unit price must not be negative", httpx.ErrValidation, i+1)
		}
		items = append(items, Item{
			Description: req.Description,
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   calc.LineTotal(qty, price),
			Position:    i + 1,
		})
	}
	return items, nil
}

func calcLines(items []Item) []calc.Line {
	lines := make([]calc.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, calc.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return lines
}

func parseDiscount(mode, value string) (calc.DiscountMode, money.Amount, error) {
	m := calc.DiscountMode(mode)
	if m == "" {
		m = calc.DiscountNone
	}
	if m == calc.DiscountNone {
		return m, money.Zero(), nil
	}
	v, err := money.FromString(value)
	if err != nil || v.IsNegative() {
		return "", money.Zero(), fmt.Errorf("%w: invalid discount value", httpx.ErrValidation)
	}
	return m, v, nil
}

func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, createdBy int64) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.DueDate.Before(req.InvoiceDate) {
		return nil, fmt.Errorf("%w: due_date must not precede invoice_date", httpx.ErrValidation)
	}
	taxRate, err := money.FromString(req.TaxRate)
	if err != nil || taxRate.IsNegative() {
		return nil, fmt.Errorf("%w: invalid tax rate", httpx.ErrValidation)
	}
	mode, discountValue, err := parseDiscount(req.DiscountMode, req.DiscountValue)
	if err != nil {
		return nil, err
	}

	items, err := parseItems(req.Items)
	if err != nil {
		return nil, err
	}
	totals, err := calc.ForInvoice(calcLines(items), taxRate, mode, discountValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	number, err := s.sequencer.Next(ctx, numbering.KindInvoice)
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}

	invoice := Invoice{
		Number:         number,
		CustomerID:     req.CustomerID,
		Status:         status.InvoiceDraft,
		InvoiceDate:    req.InvoiceDate,
		DueDate:        req.DueDate,
		TaxRate:        taxRate,
		DiscountMode:   mode,
		DiscountValue:  discountValue,
		DiscountAmount: totals.DiscountAmount,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		TotalAmount:    totals.TotalAmount,
		PaidAmount:     money.Zero(),
		PaymentMethod:  PaymentMethod(req.PaymentMethod),
		Notes:          req.Notes,
		CreatedBy:      createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if id, err = repo.Create(ctx, invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		for _, item := range items {
			item.InvoiceID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert invoice item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("invoice")
	return s.repo.Get(ctx, id)
}

// Update edits a draft invoice. Changes to items, tax rate, or discount
// recompute every derived amount.
func (s *Service) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if existing.Status != status.InvoiceDraft {
		return nil, &status.InvalidTransitionError{Doc: "invoice", From: string(existing.Status), To: string(existing.Status)}
	}

	taxRate := existing.TaxRate
	if req.TaxRate != nil {
		parsed, err := money.FromString(*req.TaxRate)
		if err != nil || parsed.IsNegative() {
			return nil, fmt.Errorf("%w: invalid tax rate", httpx.ErrValidation)
		}
		taxRate = parsed
	}

	mode := existing.DiscountMode
	discountValue := existing.DiscountValue
	if req.DiscountMode != nil || req.DiscountValue != nil {
		modeStr := string(existing.DiscountMode)
		if req.DiscountMode != nil {
			modeStr = *req.DiscountMode
		}
		valueStr := existing.DiscountValue.String()
		if req.DiscountValue != nil {
			valueStr = *req.DiscountValue
		}
		if mode, discountValue, err = parseDiscount(modeStr, valueStr); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]interface{})
	if req.InvoiceDate != nil {
		updates["invoice_date"] = *req.InvoiceDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.PaymentMethod != nil {
		updates["payment_method"] = *req.PaymentMethod
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = taxRate.String()
	}
	if req.DiscountMode != nil || req.DiscountValue != nil {
		updates["discount_mode"] = string(mode)
		updates["discount_value"] = discountValue.String()
	}

	var items []Item
	if req.Items != nil {
		if items, err = parseItems(*req.Items); err != nil {
			return nil, err
		}
	} else {
		items = existing.Items
	}

	recompute := req.Items != nil || req.TaxRate != nil || req.DiscountMode != nil || req.DiscountValue != nil
	if recompute {
		totals, err := calc.ForInvoice(calcLines(items), taxRate, mode, discountValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		updates["discount_amount"] = totals.DiscountAmount.String()
		updates["subtotal"] = totals.Subtotal.String()
		updates["tax_amount"] = totals.TaxAmount.String()
		updates["total_amount"] = totals.TotalAmount.String()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.UpdateHeader(ctx, id, updates); err != nil {
				return err
			}
		}
		if req.Items != nil {
			if err := repo.DeleteItems(ctx, id); err != nil {
				return err
			}
			for _, item := range items {
				item.InvoiceID = id
				if _, err := repo.InsertItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Transition(ctx context.Context, id int64, to status.InvoiceStatus) (*Invoice, error) {
	if !status.ValidInvoiceStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, to)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := status.TransitionInvoice(existing.Status, to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Send(ctx context.Context, id int64) (*Invoice, error) {
	return s.Transition(ctx, id, status.InvoiceSent)
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Invoice, error) {
	return s.Transition(ctx, id, status.InvoiceCancelled)
}

// ConvertQuotation builds an invoice from a quotation: items are
// deep-copied so the documents stay independently editable, and the
// quotation's totals are carried over as computed rather than rederived.
// The quotation ends up accepted whatever its status was before; edits
// to a converted quotation stay on the quotation only.
func (s *Service) ConvertQuotation(ctx context.Context, req ConvertQuotationRequest, createdBy int64) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	number, err := s.sequencer.Next(ctx, numbering.KindInvoice)
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetQuotation(ctx, req.QuotationID)
		if err != nil {
			return fmt.Errorf("get quotation: %w", err)
		}

		quotationID := q.ID
		invoice := Invoice{
			Number:         number,
			CustomerID:     q.CustomerID,
			QuotationID:    &quotationID,
			Status:         status.InvoiceDraft,
			InvoiceDate:    time.Now().UTC(),
			DueDate:        req.DueDate,
			TaxRate:        q.TaxRate,
			DiscountMode:   calc.DiscountNone,
			DiscountValue:  money.Zero(),
			DiscountAmount: money.Zero(),
			Subtotal:       q.Subtotal,
			TaxAmount:      q.TaxAmount,
			TotalAmount:    q.TotalAmount,
			PaidAmount:     money.Zero(),
			Notes:          q.Notes,
			CreatedBy:      createdBy,
		}
		if id, err = repo.Create(ctx, invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		for i, qItem := range q.Items {
			item := Item{
				InvoiceID:   id,
				Description: qItem.Description,
				Quantity:    qItem.Quantity,
				UnitPrice:   qItem.UnitPrice,
				LineTotal:   qItem.LineTotal,
				Position:    i + 1,
			}
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("copy quotation item: %w", err)
			}
		}

		if err := repo.AcceptQuotation(ctx, q.ID); err != nil {
			return fmt.Errorf("accept quotation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("invoice")
	return s.repo.Get(ctx, id)
}

// MarkOverdue is the scheduled check behind the sent to overdue edge.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return s.repo.List(ctx, req)
}
