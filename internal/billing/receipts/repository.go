package receipts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-billing/meridian/internal/billing/calc"
	"github.com/meridian-billing/meridian/internal/billing/invoices"
	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/db"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Receipt, error)
	List(ctx context.Context, req ListReceiptsRequest) ([]Receipt, int, error)
	Create(ctx context.Context, rec Receipt) (int64, error)
	UpdateDescriptive(ctx context.Context, id int64, updates map[string]interface{}) error
	// GetInvoiceForUpdate locks the invoice row for the duration of the
	// surrounding transaction. Only meaningful inside WithTx.
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (*invoices.Invoice, error)
	SettleInvoice(ctx context.Context, invoiceID int64, paid money.Amount, s status.InvoiceStatus) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const receiptColumns = `
	id, number, invoice_id, customer_id, amount::text, payment_method,
	payment_date, reference_number, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Receipt, error) {
	row := r.db.QueryRow(ctx, `SELECT`+receiptColumns+` FROM receipts WHERE id = $1`, id)
	rec, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: receipt %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return rec, nil
}

func (r *repository) List(ctx context.Context, req ListReceiptsRequest) ([]Receipt, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if req.InvoiceID != nil {
		where += fmt.Sprintf(" AND invoice_id = $%d", argPos)
		args = append(args, *req.InvoiceID)
		argPos++
	}
	if req.CustomerID != nil {
		where += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM receipts "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT%s FROM receipts %s ORDER BY payment_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		receiptColumns, where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, rec Receipt) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO receipts
			(number, invoice_id, customer_id, amount, payment_method,
			 payment_date, reference_number, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id
	`, rec.Number, rec.InvoiceID, rec.CustomerID, rec.Amount.String(),
		string(rec.PaymentMethod), rec.PaymentDate, rec.ReferenceNumber,
		rec.Notes, rec.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: receipt number %s", httpx.ErrDuplicate, rec.Number)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateDescriptive(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE receipts SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"reference_number", "notes"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: receipt %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *repository) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (*invoices.Invoice, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, number, customer_id, status, discount_mode,
		       total_amount::text, paid_amount::text
		FROM invoices WHERE id = $1
		FOR UPDATE
	`, invoiceID)

	var inv invoices.Invoice
	var st, mode, totalAmount, paidAmount string
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &st, &mode, &totalAmount, &paidAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, invoiceID)
		}
		return nil, err
	}
	inv.Status = status.InvoiceStatus(st)
	inv.DiscountMode = calc.DiscountMode(mode)
	if inv.TotalAmount, err = money.FromString(totalAmount); err != nil {
		return nil, err
	}
	if inv.PaidAmount, err = money.FromString(paidAmount); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) SettleInvoice(ctx context.Context, invoiceID int64, paid money.Amount, s status.InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET paid_amount = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`, paid.String(), string(s), invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, invoiceID)
	}
	return nil
}

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var rec Receipt
	var method, amount string
	err := row.Scan(&rec.ID, &rec.Number, &rec.InvoiceID, &rec.CustomerID,
		&amount, &method, &rec.PaymentDate, &rec.ReferenceNumber,
		&rec.Notes, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.PaymentMethod = invoices.PaymentMethod(method)
	if rec.Amount, err = money.FromString(amount); err != nil {
		return nil, err
	}
	return &rec, nil
}
