package quotations

import (
	"time"

	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/status"
)

type Quotation struct {
	ID            int64                  `json:"id" db:"id"`
	Number        string                 `json:"number" db:"number"`
	CustomerID    int64                  `json:"customer_id" db:"customer_id"`
	Status        status.QuotationStatus `json:"status" db:"status"`
	QuotationDate time.Time              `json:"quotation_date" db:"quotation_date"`
	ValidUntil    time.Time              `json:"valid_until" db:"valid_until"`
	TaxRate       money.Amount           `json:"tax_rate" db:"tax_rate"`
	Subtotal      money.Amount           `json:"subtotal" db:"subtotal"`
	TaxAmount     money.Amount           `json:"tax_amount" db:"tax_amount"`
	TotalAmount   money.Amount           `json:"total_amount" db:"total_amount"`
	Notes         string                 `json:"notes" db:"notes"`
	CreatedBy     int64                  `json:"created_by" db:"created_by"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at" db:"updated_at"`
	Items         []Item                 `json:"items,omitempty" db:"-"`
}

// Item is one priced row of a quotation. LineTotal is always derived
// from quantity and unit price before persistence, never set directly.
type Item struct {
	ID          int64        `json:"id" db:"id"`
	QuotationID int64        `json:"quotation_id" db:"quotation_id"`
	Description string       `json:"description" db:"description"`
	Quantity    money.Amount `json:"quantity" db:"quantity"`
	UnitPrice   money.Amount `json:"unit_price" db:"unit_price"`
	LineTotal   money.Amount `json:"line_total" db:"line_total"`
	Position    int          `json:"position" db:"position"`
}
