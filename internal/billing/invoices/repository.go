package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-billing/meridian/internal/billing/calc"
	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/quotations"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/db"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, s status.InvoiceStatus) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, invoiceID int64) error
	GetQuotation(ctx context.Context, id int64) (*quotations.Quotation, error)
	AcceptQuotation(ctx context.Context, id int64) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
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

const invoiceColumns = `
	id, number, customer_id, quotation_id, status, invoice_date, due_date,
	tax_rate::text, discount_mode, discount_value::text, discount_amount::text,
	subtotal::text, tax_amount::text, total_amount::text, paid_amount::text,
	payment_method, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT`+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	if inv.Items, err = r.items(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT`+invoiceColumns+` FROM invoices WHERE number = $1`, number)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %s", httpx.ErrNotFound, number)
		}
		return nil, err
	}
	if inv.Items, err = r.items(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		where += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*req.Status))
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM invoices "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT%s FROM invoices %s ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices
			(number, customer_id, quotation_id, status, invoice_date, due_date,
			 tax_rate, discount_mode, discount_value, discount_amount,
			 subtotal, tax_amount, total_amount, paid_amount,
			 payment_method, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		RETURNING id
	`, inv.Number, inv.CustomerID, inv.QuotationID, string(inv.Status),
		inv.InvoiceDate, inv.DueDate, inv.TaxRate.String(), string(inv.DiscountMode),
		inv.DiscountValue.String(), inv.DiscountAmount.String(),
		inv.Subtotal.String(), inv.TaxAmount.String(), inv.TotalAmount.String(),
		inv.PaidAmount.String(), string(inv.PaymentMethod), inv.Notes, inv.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: invoice number %s", httpx.ErrDuplicate, inv.Number)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE invoices SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	cols := []string{
		"invoice_date", "due_date", "tax_rate", "discount_mode", "discount_value",
		"discount_amount", "payment_method", "notes", "subtotal", "tax_amount", "total_amount",
	}
	for _, col := range cols {
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
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, s status.InvoiceStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, string(s), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, line_total, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.InvoiceID, item.Description, item.Quantity.String(),
		item.UnitPrice.String(), item.LineTotal.String(), item.Position).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, invoiceID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	return err
}

// GetQuotation loads a quotation with its items for conversion.
func (r *repository) GetQuotation(ctx context.Context, id int64) (*quotations.Quotation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, number, customer_id, status, tax_rate::text,
		       subtotal::text, tax_amount::text, total_amount::text, notes
		FROM quotations WHERE id = $1
	`, id)

	var q quotations.Quotation
	var st, taxRate, subtotal, taxAmount, totalAmount string
	err := row.Scan(&q.ID, &q.Number, &q.CustomerID, &st,
		&taxRate, &subtotal, &taxAmount, &totalAmount, &q.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	q.Status = status.QuotationStatus(st)
	if q.TaxRate, err = money.FromString(taxRate); err != nil {
		return nil, err
	}
	if q.Subtotal, err = money.FromString(subtotal); err != nil {
		return nil, err
	}
	if q.TaxAmount, err = money.FromString(taxAmount); err != nil {
		return nil, err
	}
	if q.TotalAmount, err = money.FromString(totalAmount); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT description, quantity::text, unit_price::text, line_total::text, position
		FROM quotation_items WHERE quotation_id = $1 ORDER BY position, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item quotations.Item
		var quantity, unitPrice, lineTotal string
		if err := rows.Scan(&item.Description, &quantity, &unitPrice, &lineTotal, &item.Position); err != nil {
			return nil, err
		}
		if item.Quantity, err = money.FromString(quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = money.FromString(unitPrice); err != nil {
			return nil, err
		}
		if item.LineTotal, err = money.FromString(lineTotal); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, item)
	}
	return &q, rows.Err()
}

func (r *repository) AcceptQuotation(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status.QuotationAccepted), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	return nil
}

// MarkOverdue flips sent invoices past their due date to overdue. The
// status guard in the WHERE clause enforces the sent to overdue edge of
// the transition table.
func (r *repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date < $3
	`, string(status.InvoiceOverdue), string(status.InvoiceSent), asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) items(ctx context.Context, invoiceID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, description, quantity::text, unit_price::text, line_total::text, position
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position, id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var quantity, unitPrice, lineTotal string
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&quantity, &unitPrice, &lineTotal, &item.Position); err != nil {
			return nil, err
		}
		if item.Quantity, err = money.FromString(quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = money.FromString(unitPrice); err != nil {
			return nil, err
		}
		if item.LineTotal, err = money.FromString(lineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var st, mode, method string
	var taxRate, discountValue, discountAmount, subtotal, taxAmount, totalAmount, paidAmount string
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.QuotationID, &st,
		&inv.InvoiceDate, &inv.DueDate,
		&taxRate, &mode, &discountValue, &discountAmount,
		&subtotal, &taxAmount, &totalAmount, &paidAmount,
		&method, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = status.InvoiceStatus(st)
	inv.DiscountMode = calc.DiscountMode(mode)
	inv.PaymentMethod = PaymentMethod(method)
	for _, pair := range []struct {
		dst *money.Amount
		src string
	}{
		{&inv.TaxRate, taxRate},
		{&inv.DiscountValue, discountValue},
		{&inv.DiscountAmount, discountAmount},
		{&inv.Subtotal, subtotal},
		{&inv.TaxAmount, taxAmount},
		{&inv.TotalAmount, totalAmount},
		{&inv.PaidAmount, paidAmount},
	} {
		if *pair.dst, err = money.FromString(pair.src); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}
