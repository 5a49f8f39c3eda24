package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-billing/meridian/internal/billing/money"
)

type Repository interface {
	InvoiceTotals(ctx context.Context) (invoiced, collected money.Amount, err error)
	InvoiceCounts(ctx context.Context) (map[string]int, error)
	QuotationCounts(ctx context.Context) (map[string]int, error)
	CustomerCount(ctx context.Context) (int, error)
	Aging(ctx context.Context, asOf time.Time) ([]AgingBucket, error)
	TopDebtors(ctx context.Context, limit int) ([]DebtorSummary, error)
	MethodStats(ctx context.Context, from, to time.Time) ([]MethodStat, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// InvoiceTotals sums the billed and collected amounts over every
// invoice that still counts toward revenue.
func (r *repository) InvoiceTotals(ctx context.Context) (money.Amount, money.Amount, error) {
	var invoiced, collected string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)::text,
		       COALESCE(SUM(paid_amount), 0)::text
		FROM invoices
		WHERE status <> 'cancelled'
	`).Scan(&invoiced, &collected)
	if err != nil {
		return money.Zero(), money.Zero(), err
	}
	inv, err := money.FromString(invoiced)
	if err != nil {
		return money.Zero(), money.Zero(), err
	}
	col, err := money.FromString(collected)
	if err != nil {
		return money.Zero(), money.Zero(), err
	}
	return inv, col, nil
}

func (r *repository) InvoiceCounts(ctx context.Context) (map[string]int, error) {
	return r.statusCounts(ctx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
}

func (r *repository) QuotationCounts(ctx context.Context) (map[string]int, error) {
	return r.statusCounts(ctx, `SELECT status, COUNT(*) FROM quotations GROUP BY status`)
}

func (r *repository) statusCounts(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *repository) CustomerCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}

// Aging buckets open invoices by days past due as of the given date.
func (r *repository) Aging(ctx context.Context, asOf time.Time) ([]AgingBucket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bucket, COUNT(*), COALESCE(SUM(balance), 0)::text
		FROM (
			SELECT (total_amount - paid_amount) AS balance,
			       CASE
			           WHEN due_date >= $1::date THEN 'current'
			           WHEN $1::date - due_date <= 30 THEN '1-30'
			           WHEN $1::date - due_date <= 60 THEN '31-60'
			           ELSE '60+'
			       END AS bucket
			FROM invoices
			WHERE status IN ('sent', 'overdue')
		) open_invoices
		GROUP BY bucket
	`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]AgingBucket)
	for rows.Next() {
		var b AgingBucket
		var amount string
		if err := rows.Scan(&b.Bucket, &b.Count, &amount); err != nil {
			return nil, err
		}
		if b.Amount, err = money.FromString(amount); err != nil {
			return nil, err
		}
		byName[b.Bucket] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// fixed bucket order, zero-filled
	out := make([]AgingBucket, 0, 4)
	for _, name := range []string{"current", "1-30", "31-60", "60+"} {
		b, ok := byName[name]
		if !ok {
			b = AgingBucket{Bucket: name, Amount: money.Zero()}
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *repository) TopDebtors(ctx context.Context, limit int) ([]DebtorSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, COUNT(i.id),
		       COALESCE(SUM(i.total_amount - i.paid_amount), 0)::text
		FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		WHERE i.status IN ('sent', 'overdue')
		GROUP BY c.id, c.name
		HAVING SUM(i.total_amount - i.paid_amount) > 0
		ORDER BY SUM(i.total_amount - i.paid_amount) DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DebtorSummary
	for rows.Next() {
		var d DebtorSummary
		var outstanding string
		if err := rows.Scan(&d.CustomerID, &d.CustomerName, &d.InvoiceCount, &outstanding); err != nil {
			return nil, err
		}
		if d.Outstanding, err = money.FromString(outstanding); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) MethodStats(ctx context.Context, from, to time.Time) ([]MethodStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(amount), 0)::text
		FROM receipts
		WHERE payment_date >= $1 AND payment_date < $2
		GROUP BY payment_method
		ORDER BY SUM(amount) DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MethodStat
	for rows.Next() {
		var m MethodStat
		var amount string
		if err := rows.Scan(&m.Method, &m.Count, &amount); err != nil {
			return nil, err
		}
		if m.Amount, err = money.FromString(amount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
