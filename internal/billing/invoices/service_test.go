package invoices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-billing/meridian/internal/billing/calc"
	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/numbering"
	"github.com/meridian-billing/meridian/internal/billing/quotations"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

type memoryInvoiceRepo struct {
	mu         sync.Mutex
	nextID     int64
	nextItemID int64
	invoices   map[int64]*Invoice
	items      map[int64][]Item
	quotations map[int64]*quotations.Quotation
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices:   make(map[int64]*Invoice),
		items:      make(map[int64][]Item),
		quotations: make(map[int64]*quotations.Quotation),
	}
}

func (m *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryInvoiceRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	out := *inv
	out.Items = append([]Item(nil), m.items[id]...)
	return &out, nil
}

func (m *memoryInvoiceRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, inv := range m.invoices {
		if inv.Number == number {
			out := *inv
			out.Items = append([]Item(nil), m.items[id]...)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: invoice %s", httpx.ErrNotFound, number)
}

func (m *memoryInvoiceRepo) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.invoices {
		if req.CustomerID != nil && inv.CustomerID != *req.CustomerID {
			continue
		}
		if req.Status != nil && inv.Status != *req.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *memoryInvoiceRepo) Create(ctx context.Context, inv Invoice) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	inv.ID = m.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryInvoiceRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	for col, v := range updates {
		switch col {
		case "invoice_date":
			inv.InvoiceDate = v.(time.Time)
		case "due_date":
			inv.DueDate = v.(time.Time)
		case "notes":
			inv.Notes = v.(string)
		case "payment_method":
			inv.PaymentMethod = PaymentMethod(v.(string))
		case "tax_rate":
			inv.TaxRate = money.MustParse(v.(string))
		case "discount_mode":
			inv.DiscountMode = calc.DiscountMode(v.(string))
		case "discount_value":
			inv.DiscountValue = money.MustParse(v.(string))
		case "discount_amount":
			inv.DiscountAmount = money.MustParse(v.(string))
		case "subtotal":
			inv.Subtotal = money.MustParse(v.(string))
		case "tax_amount":
			inv.TaxAmount = money.MustParse(v.(string))
		case "total_amount":
			inv.TotalAmount = money.MustParse(v.(string))
		}
	}
	inv.UpdatedAt = time.Now()
	return nil
}

func (m *memoryInvoiceRepo) UpdateStatus(ctx context.Context, id int64, s status.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	inv.Status = s
	return nil
}

func (m *memoryInvoiceRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextItemID++
	item.ID = m.nextItemID
	m.items[item.InvoiceID] = append(m.items[item.InvoiceID], item)
	return item.ID, nil
}

func (m *memoryInvoiceRepo) DeleteItems(ctx context.Context, invoiceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, invoiceID)
	return nil
}

func (m *memoryInvoiceRepo) GetQuotation(ctx context.Context, id int64) (*quotations.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	out := *q
	out.Items = append([]quotations.Item(nil), q.Items...)
	return &out, nil
}

func (m *memoryInvoiceRepo) AcceptQuotation(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	q.Status = status.QuotationAccepted
	return nil
}

func (m *memoryInvoiceRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, inv := range m.invoices {
		if inv.Status == status.InvoiceSent && inv.DueDate.Before(asOf) {
			inv.Status = status.InvoiceOverdue
			n++
		}
	}
	return n, nil
}

func newInvoiceService() (*Service, *memoryInvoiceRepo) {
	repo := newMemoryInvoiceRepo()
	seq := numbering.NewSequencer(numbering.NewMemStore())
	return NewService(repo, seq, nil), repo
}

func invoiceRequest() CreateInvoiceRequest {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return CreateInvoiceRequest{
		CustomerID:    1,
		InvoiceDate:   now,
		DueDate:       now.AddDate(0, 1, 0),
		TaxRate:       "5",
		DiscountMode:  "percentage",
		DiscountValue: "10",
		Items: []CreateItemReq{
			{Description: "Project fee", Quantity: "1", UnitPrice: "1000.00"},
		},
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	svc, _ := newInvoiceService()

	inv, err := svc.Create(context.Background(), invoiceRequest(), 3)
	require.NoError(t, err)

	require.Equal(t, "INV-00001", inv.Number)
	require.Equal(t, status.InvoiceDraft, inv.Status)
	require.Equal(t, "1000.00", inv.Subtotal.String())
	require.Equal(t, "100.00", inv.DiscountAmount.String())
	require.Equal(t, "45.00", inv.TaxAmount.String())
	require.Equal(t, "945.00", inv.TotalAmount.String())
	require.Equal(t, "945.00", inv.BalanceDue().String())
}

func TestCreateInvoiceNoDiscount(t *testing.T) {
	svc, _ := newInvoiceService()

	req := invoiceRequest()
	req.DiscountMode = ""
	req.DiscountValue = ""
	inv, err := svc.Create(context.Background(), req, 1)
	require.NoError(t, err)

	require.Equal(t, "0.00", inv.DiscountAmount.String())
	require.Equal(t, "50.00", inv.TaxAmount.String())
	require.Equal(t, "1050.00", inv.TotalAmount.String())
}

func TestUpdateInvoiceRecomputesDiscount(t *testing.T) {
	svc, _ := newInvoiceService()
	ctx := context.Background()

	inv, err := svc.Create(ctx, invoiceRequest(), 1)
	require.NoError(t, err)

	mode := "fixed"
	value := "200.00"
	updated, err := svc.Update(ctx, inv.ID, UpdateInvoiceRequest{DiscountMode: &mode, DiscountValue: &value})
	require.NoError(t, err)

	require.Equal(t, "200.00", updated.DiscountAmount.String())
	require.Equal(t, "40.00", updated.TaxAmount.String())
	require.Equal(t, "840.00", updated.TotalAmount.String())
}

func TestUpdateInvoiceOnlyWhileDraft(t *testing.T) {
	svc, _ := newInvoiceService()
	ctx := context.Background()

	inv, err := svc.Create(ctx, invoiceRequest(), 1)
	require.NoError(t, err)
	_, err = svc.Send(ctx, inv.ID)
	require.NoError(t, err)

	notes := "late edit"
	_, err = svc.Update(ctx, inv.ID, UpdateInvoiceRequest{Notes: &notes})
	var invalid *status.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestInvoiceTransitions(t *testing.T) {
	svc, repo := newInvoiceService()
	ctx := context.Background()

	inv, err := svc.Create(ctx, invoiceRequest(), 1)
	require.NoError(t, err)

	// draft cannot be paid through the regular table
	_, err = svc.Transition(ctx, inv.ID, status.InvoicePaid)
	var invalid *status.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	sent, err := svc.Send(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, status.InvoiceSent, sent.Status)

	require.NoError(t, repo.UpdateStatus(ctx, inv.ID, status.InvoicePaid))

	// paid is terminal
	_, err = svc.Cancel(ctx, inv.ID)
	require.True(t, errors.As(err, &invalid))
}

func seedQuotation(repo *memoryInvoiceRepo) *quotations.Quotation {
	q := &quotations.Quotation{
		ID:          42,
		Number:      "QT-00042",
		CustomerID:  9,
		Status:      status.QuotationSent,
		TaxRate:     money.MustParse("5"),
		Subtotal:    money.MustParse("250.00"),
		TaxAmount:   money.MustParse("12.50"),
		TotalAmount: money.MustParse("262.50"),
		Notes:       "spring campaign",
		Items: []quotations.Item{
			{ID: 1, QuotationID: 42, Description: "Design", Quantity: money.MustParse("2"), UnitPrice: money.MustParse("100.00"), LineTotal: money.MustParse("200.00"), Position: 1},
			{ID: 2, QuotationID: 42, Description: "Copywriting", Quantity: money.MustParse("1"), UnitPrice: money.MustParse("25.00"), LineTotal: money.MustParse("25.00"), Position: 2},
			{ID: 3, QuotationID: 42, Description: "Hosting", Quantity: money.MustParse("1"), UnitPrice: money.MustParse("25.00"), LineTotal: money.MustParse("25.00"), Position: 3},
		},
	}
	repo.quotations[q.ID] = q
	return q
}

func TestConvertQuotation(t *testing.T) {
	svc, repo := newInvoiceService()
	ctx := context.Background()
	q := seedQuotation(repo)

	due := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	inv, err := svc.ConvertQuotation(ctx, ConvertQuotationRequest{QuotationID: q.ID, DueDate: due}, 1)
	require.NoError(t, err)

	require.Equal(t, "INV-00001", inv.Number)
	require.Equal(t, q.CustomerID, inv.CustomerID)
	require.NotNil(t, inv.QuotationID)
	require.Equal(t, q.ID, *inv.QuotationID)

	// totals carried over, not recomputed
	require.Equal(t, "250.00", inv.Subtotal.String())
	require.Equal(t, "12.50", inv.TaxAmount.String())
	require.Equal(t, "262.50", inv.TotalAmount.String())

	// items deep-copied and independently owned
	require.Len(t, inv.Items, 3)
	for i, item := range inv.Items {
		require.Equal(t, inv.ID, item.InvoiceID)
		require.Equal(t, q.Items[i].Description, item.Description)
		require.NotEqual(t, q.Items[i].ID, item.ID)
	}

	// source quotation accepted, its items untouched
	require.Equal(t, status.QuotationAccepted, repo.quotations[q.ID].Status)
	require.Len(t, repo.quotations[q.ID].Items, 3)
}

func TestConvertQuotationFromDraftStillAllowed(t *testing.T) {
	svc, repo := newInvoiceService()
	ctx := context.Background()
	q := seedQuotation(repo)
	q.Status = status.QuotationDraft

	_, err := svc.ConvertQuotation(ctx, ConvertQuotationRequest{QuotationID: q.ID, DueDate: time.Now().AddDate(0, 1, 0)}, 1)
	require.NoError(t, err)
	require.Equal(t, status.QuotationAccepted, repo.quotations[q.ID].Status)
}

func TestConvertQuotationNotFound(t *testing.T) {
	svc, _ := newInvoiceService()

	_, err := svc.ConvertQuotation(context.Background(),
		ConvertQuotationRequest{QuotationID: 999, DueDate: time.Now()}, 1)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	svc, repo := newInvoiceService()
	ctx := context.Background()

	inv, err := svc.Create(ctx, invoiceRequest(), 1)
	require.NoError(t, err)
	_, err = svc.Send(ctx, inv.ID)
	require.NoError(t, err)

	// not yet due
	n, err := svc.MarkOverdue(ctx, inv.DueDate.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = svc.MarkOverdue(ctx, inv.DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, status.InvoiceOverdue, got.Status)
}
