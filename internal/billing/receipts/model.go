package receipts

import (
	"time"

	"github.com/meridian-billing/meridian/internal/billing/invoices"
	"github.com/meridian-billing/meridian/internal/billing/money"
)

// Receipt records one payment against an invoice. CustomerID is a
// denormalized copy of the invoice's customer taken at creation time.
// Amount is append-only; corrections are a new receipt, never an edit.
type Receipt struct {
	ID              int64                  `json:"id" db:"id"`
	Number          string                 `json:"number" db:"number"`
	InvoiceID       int64                  `json:"invoice_id" db:"invoice_id"`
	CustomerID      int64                  `json:"customer_id" db:"customer_id"`
	Amount          money.Amount           `json:"amount" db:"amount"`
	PaymentMethod   invoices.PaymentMethod `json:"payment_method" db:"payment_method"`
	PaymentDate     time.Time              `json:"payment_date" db:"payment_date"`
	ReferenceNumber string                 `json:"reference_number" db:"reference_number"`
	Notes           string                 `json:"notes" db:"notes"`
	CreatedBy       int64                  `json:"created_by" db:"created_by"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" db:"updated_at"`
}
