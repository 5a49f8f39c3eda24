package quotations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/numbering"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

type memoryQuotationRepo struct {
	mu         sync.Mutex
	nextID     int64
	nextItemID int64
	quotations map[int64]*Quotation
	items      map[int64][]Item
}

func newMemoryQuotationRepo() *memoryQuotationRepo {
	return &memoryQuotationRepo{
		quotations: make(map[int64]*Quotation),
		items:      make(map[int64][]Item),
	}
}

func (m *memoryQuotationRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryQuotationRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	out := *q
	out.Items = append([]Item(nil), m.items[id]...)
	return &out, nil
}

func (m *memoryQuotationRepo) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, q := range m.quotations {
		if q.Number == number {
			out := *q
			out.Items = append([]Item(nil), m.items[id]...)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: quotation %s", httpx.ErrNotFound, number)
}

func (m *memoryQuotationRepo) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quotation
	for _, q := range m.quotations {
		if req.CustomerID != nil && q.CustomerID != *req.CustomerID {
			continue
		}
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *memoryQuotationRepo) Create(ctx context.Context, q Quotation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *memoryQuotationRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	for col, v := range updates {
		switch col {
		case "quotation_date":
			q.QuotationDate = v.(time.Time)
		case "valid_until":
			q.ValidUntil = v.(time.Time)
		case "notes":
			q.Notes = v.(string)
		case "tax_rate":
			q.TaxRate = money.MustParse(v.(string))
		case "subtotal":
			q.Subtotal = money.MustParse(v.(string))
		case "tax_amount":
			q.TaxAmount = money.MustParse(v.(string))
		case "total_amount":
			q.TotalAmount = money.MustParse(v.(string))
		}
	}
	q.UpdatedAt = time.Now()
	return nil
}

func (m *memoryQuotationRepo) UpdateStatus(ctx context.Context, id int64, s status.QuotationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	q.Status = s
	return nil
}

func (m *memoryQuotationRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextItemID++
	item.ID = m.nextItemID
	m.items[item.QuotationID] = append(m.items[item.QuotationID], item)
	return item.ID, nil
}

func (m *memoryQuotationRepo) DeleteItems(ctx context.Context, quotationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, quotationID)
	return nil
}

func newQuotationService() (*Service, *memoryQuotationRepo) {
	repo := newMemoryQuotationRepo()
	seq := numbering.NewSequencer(numbering.NewMemStore())
	return NewService(repo, seq, nil), repo
}

func createRequest() CreateQuotationRequest {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return CreateQuotationRequest{
		CustomerID:    1,
		QuotationDate: now,
		ValidUntil:    now.AddDate(0, 1, 0),
		TaxRate:       "5",
		Items: []CreateItemReq{
			{Description: "Consulting", Quantity: "10", UnitPrice: "20.00"},
			{Description: "Support retainer", UnitPrice: "50.00"},
		},
	}
}

func TestCreateQuotationComputesTotals(t *testing.T) {
	svc, _ := newQuotationService()

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	require.Equal(t, "QT-00001", q.Number)
	require.Equal(t, status.QuotationDraft, q.Status)
	require.Equal(t, int64(7), q.CreatedBy)
	require.Len(t, q.Items, 2)
	require.Equal(t, "200.00", q.Items[0].LineTotal.String())
	// omitted quantity defaults to 1
	require.Equal(t, "50.00", q.Items[1].LineTotal.String())
	require.Equal(t, "250.00", q.Subtotal.String())
	require.Equal(t, "12.50", q.TaxAmount.String())
	require.Equal(t, "262.50", q.TotalAmount.String())
}

func TestCreateQuotationSequentialNumbers(t *testing.T) {
	svc, _ := newQuotationService()

	for i, want := range []string{"QT-00001", "QT-00002", "QT-00003"} {
		q, err := svc.Create(context.Background(), createRequest(), 1)
		require.NoError(t, err, "create %d", i)
		require.Equal(t, want, q.Number)
	}
}

func TestCreateQuotationRejectsBadInput(t *testing.T) {
	svc, _ := newQuotationService()
	ctx := context.Background()

	req := createRequest()
	req.Items = nil
	_, err := svc.Create(ctx, req, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)

	req = createRequest()
	req.ValidUntil = req.QuotationDate.AddDate(0, 0, -1)
	_, err = svc.Create(ctx, req, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)

	req = createRequest()
	req.Items[0].UnitPrice = "-4"
	_, err = svc.Create(ctx, req, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)

	req = createRequest()
	req.TaxRate = "banana"
	_, err = svc.Create(ctx, req, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateQuotationReplacesItemsAndRecomputes(t *testing.T) {
	svc, _ := newQuotationService()
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest(), 1)
	require.NoError(t, err)

	items := []CreateItemReq{{Description: "Flat fee", Quantity: "1", UnitPrice: "1000.00"}}
	rate := "10"
	updated, err := svc.Update(ctx, q.ID, UpdateQuotationRequest{TaxRate: &rate, Items: &items})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	require.Equal(t, "1000.00", updated.Subtotal.String())
	require.Equal(t, "100.00", updated.TaxAmount.String())
	require.Equal(t, "1100.00", updated.TotalAmount.String())
}

func TestUpdateQuotationOnlyWhileDraft(t *testing.T) {
	svc, _ := newQuotationService()
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest(), 1)
	require.NoError(t, err)

	_, err = svc.Send(ctx, q.ID)
	require.NoError(t, err)

	notes := "too late"
	_, err = svc.Update(ctx, q.ID, UpdateQuotationRequest{Notes: &notes})
	var invalid *status.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestQuotationTransitions(t *testing.T) {
	svc, _ := newQuotationService()
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest(), 1)
	require.NoError(t, err)

	// draft cannot expire without ever being sent
	_, err = svc.Expire(ctx, q.ID)
	var invalid *status.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	sent, err := svc.Send(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, status.QuotationSent, sent.Status)

	rejected, err := svc.Reject(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, status.QuotationRejected, rejected.Status)

	// rejected is terminal
	_, err = svc.Expire(ctx, q.ID)
	require.True(t, errors.As(err, &invalid))
}

func TestQuotationListFilters(t *testing.T) {
	svc, _ := newQuotationService()
	ctx := context.Background()

	first, err := svc.Create(ctx, createRequest(), 1)
	require.NoError(t, err)
	req := createRequest()
	req.CustomerID = 2
	_, err = svc.Create(ctx, req, 1)
	require.NoError(t, err)

	_, err = svc.Send(ctx, first.ID)
	require.NoError(t, err)

	sent := status.QuotationSent
	out, total, err := svc.List(ctx, ListQuotationsRequest{Status: &sent})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, first.ID, out[0].ID)
}
