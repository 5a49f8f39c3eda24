package quotations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/db"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetByNumber(ctx context.Context, number string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, s status.QuotationStatus) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, quotationID int64) error
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

const quotationColumns = `
	id, number, customer_id, status, quotation_date, valid_until,
	tax_rate::text, subtotal::text, tax_amount::text, total_amount::text,
	notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT`+quotationColumns+` FROM quotations WHERE id = $1`, id)
	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	if q.Items, err = r.items(ctx, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT`+quotationColumns+` FROM quotations WHERE number = $1`, number)
	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quotation %s", httpx.ErrNotFound, number)
		}
		return nil, err
	}
	if q.Items, err = r.items(ctx, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
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
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotations "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT%s FROM quotations %s ORDER BY quotation_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		quotationColumns, where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations
			(number, customer_id, status, quotation_date, valid_until,
			 tax_rate, subtotal, tax_amount, total_amount, notes, created_by,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id
	`, q.Number, q.CustomerID, string(q.Status), q.QuotationDate, q.ValidUntil,
		q.TaxRate.String(), q.Subtotal.String(), q.TaxAmount.String(),
		q.TotalAmount.String(), q.Notes, q.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: quotation number %s", httpx.ErrDuplicate, q.Number)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE quotations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"quotation_date", "valid_until", "tax_rate", "notes", "subtotal", "tax_amount", "total_amount"} {
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
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, s status.QuotationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2`, string(s), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, description, quantity, unit_price, line_total, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.QuotationID, item.Description, item.Quantity.String(),
		item.UnitPrice.String(), item.LineTotal.String(), item.Position).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID)
	return err
}

func (r *repository) items(ctx context.Context, quotationID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, description, quantity::text, unit_price::text, line_total::text, position
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY position, id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var quantity, unitPrice, lineTotal string
		if err := rows.Scan(&item.ID, &item.QuotationID, &item.Description,
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

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	var st, taxRate, subtotal, taxAmount, totalAmount string
	err := row.Scan(&q.ID, &q.Number, &q.CustomerID, &st, &q.QuotationDate, &q.ValidUntil,
		&taxRate, &subtotal, &taxAmount, &totalAmount,
		&q.Notes, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
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
	return &q, nil
}
