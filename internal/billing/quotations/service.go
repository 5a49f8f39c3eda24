package quotations

import (
	"context"
	"fmt"

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

// parseItems validates and prices request rows. Quantity defaults to 1
// when omitted, matching the document entry forms.
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

func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, createdBy int64) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.ValidUntil.Before(req.QuotationDate) {
		return nil, fmt.Errorf("%w: valid_until must not precede quotation_date", httpx.ErrValidation)
	}
	taxRate, err := money.FromString(req.TaxRate)
	if err != nil || taxRate.IsNegative() {
		return nil, fmt.Errorf("%w: invalid tax rate", httpx.ErrValidation)
	}

	items, err := parseItems(req.Items)
	if err != nil {
		return nil, err
	}
	totals := calc.ForQuotation(calcLines(items), taxRate)

	number, err := s.sequencer.Next(ctx, numbering.KindQuotation)
	if err != nil {
		return nil, fmt.Errorf("allocate quotation number: %w", err)
	}

	quotation := Quotation{
		Number:        number,
		CustomerID:    req.CustomerID,
		Status:        status.QuotationDraft,
		QuotationDate: req.QuotationDate,
		ValidUntil:    req.ValidUntil,
		TaxRate:       taxRate,
		Subtotal:      totals.Subtotal,
		TaxAmount:     totals.TaxAmount,
		TotalAmount:   totals.TotalAmount,
		Notes:         req.Notes,
		CreatedBy:     createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if id, err = repo.Create(ctx, quotation); err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		for _, item := range items {
			item.QuotationID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert quotation item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("quotation")
	return s.repo.Get(ctx, id)
}

// Update edits a draft quotation. Item replacement always recomputes
// line totals and document totals from the new rows.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != status.QuotationDraft {
		return nil, &status.InvalidTransitionError{Doc: "quotation", From: string(existing.Status), To: string(existing.Status)}
	}

	taxRate := existing.TaxRate
	if req.TaxRate != nil {
		parsed, err := money.FromString(*req.TaxRate)
		if err != nil || parsed.IsNegative() {
			return nil, fmt.Errorf("%w: invalid tax rate", httpx.ErrValidation)
		}
		taxRate = parsed
	}

	updates := make(map[string]interface{})
	if req.QuotationDate != nil {
		updates["quotation_date"] = *req.QuotationDate
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = taxRate.String()
	}

	var items []Item
	if req.Items != nil {
		if items, err = parseItems(*req.Items); err != nil {
			return nil, err
		}
	} else {
		items = existing.Items
	}

	if req.Items != nil || req.TaxRate != nil {
		totals := calc.ForQuotation(calcLines(items), taxRate)
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
				item.QuotationID = id
				if _, err := repo.InsertItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update quotation: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Transition moves a quotation to the requested status through the
// transition table.
func (s *Service) Transition(ctx context.Context, id int64, to status.QuotationStatus) (*Quotation, error) {
	if !status.ValidQuotationStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, to)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if err := status.TransitionQuotation(existing.Status, to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Send(ctx context.Context, id int64) (*Quotation, error) {
	return s.Transition(ctx, id, status.QuotationSent)
}

func (s *Service) Reject(ctx context.Context, id int64) (*Quotation, error) {
	return s.Transition(ctx, id, status.QuotationRejected)
}

func (s *Service) Expire(ctx context.Context, id int64) (*Quotation, error) {
	return s.Transition(ctx, id, status.QuotationExpired)
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return s.repo.List(ctx, req)
}
