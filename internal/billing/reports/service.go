package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-billing/meridian/internal/billing/money"
)

type Service struct {
	repo  Repository
	cache *Cache
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Invalidate drops every cached report. Call after any document write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	key, err := s.cache.Key(ctx, "reports", "dashboard")
	if err != nil {
		return nil, err
	}

	var out Dashboard
	err = s.cache.Fetch(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		invoiced, collected, err := s.repo.InvoiceTotals(ctx)
		if err != nil {
			return nil, fmt.Errorf("invoice totals: %w", err)
		}
		invoiceCounts, err := s.repo.InvoiceCounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("invoice counts: %w", err)
		}
		quotationCounts, err := s.repo.QuotationCounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("quotation counts: %w", err)
		}
		customers, err := s.repo.CustomerCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("customer count: %w", err)
		}

		return &Dashboard{
			TotalInvoiced:     invoiced,
			TotalCollected:    collected,
			TotalOutstanding:  invoiced.Sub(collected),
			InvoiceCounts:     invoiceCounts,
			QuotationCounts:   quotationCounts,
			CustomerCount:     customers,
			CollectionRatePct: collectionRate(invoiced, collected),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Aging(ctx context.Context, asOf time.Time) ([]AgingBucket, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC().Truncate(24 * time.Hour)
	}
	key, err := s.cache.Key(ctx, "reports", "aging", asOf.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	var out []AgingBucket
	err = s.cache.Fetch(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.Aging(ctx, asOf)
	})
	return out, err
}

func (s *Service) TopDebtors(ctx context.Context, limit int) ([]DebtorSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key, err := s.cache.Key(ctx, "reports", "debtors", fmt.Sprint(limit))
	if err != nil {
		return nil, err
	}

	var out []DebtorSummary
	err = s.cache.Fetch(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopDebtors(ctx, limit)
	})
	return out, err
}

func (s *Service) MethodStats(ctx context.Context, from, to time.Time) ([]MethodStat, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	key, err := s.cache.Key(ctx, "reports", "methods",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	var out []MethodStat
	err = s.cache.Fetch(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.MethodStats(ctx, from, to)
	})
	return out, err
}

func collectionRate(invoiced, collected money.Amount) string {
	if !invoiced.IsPositive() {
		return "0.0"
	}
	rate := collected.Decimal().Div(invoiced.Decimal()).Mul(decimal.NewFromInt(100))
	return rate.StringFixed(1)
}
