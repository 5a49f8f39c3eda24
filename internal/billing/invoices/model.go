package invoices

import (
	"encoding/json"
	"time"

	"github.com/meridian-billing/meridian/internal/billing/calc"
	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/status"
)

// PaymentMethod is how an invoice is expected to be, or a receipt was,
// settled.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheck        PaymentMethod = "check"
	MethodOnline       PaymentMethod = "online"
)

var paymentMethods = map[PaymentMethod]bool{
	MethodCash:         true,
	MethodCard:         true,
	MethodBankTransfer: true,
	MethodCheck:        true,
	MethodOnline:       true,
}

// ValidPaymentMethod reports whether m names a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	return paymentMethods[m]
}

type Invoice struct {
	ID            int64                `json:"id" db:"id"`
	Number        string               `json:"number" db:"number"`
	CustomerID    int64                `json:"customer_id" db:"customer_id"`
	QuotationID   *int64               `json:"quotation_id,omitempty" db:"quotation_id"`
	Status        status.InvoiceStatus `json:"status" db:"status"`
	InvoiceDate   time.Time            `json:"invoice_date" db:"invoice_date"`
	DueDate       time.Time            `json:"due_date" db:"due_date"`
	TaxRate       money.Amount         `json:"tax_rate" db:"tax_rate"`
	DiscountMode  calc.DiscountMode    `json:"discount_mode" db:"discount_mode"`
	DiscountValue money.Amount         `json:"discount_value" db:"discount_value"`
	// Derived by the totals calculator, never set directly.
	DiscountAmount money.Amount  `json:"discount_amount" db:"discount_amount"`
	Subtotal       money.Amount  `json:"subtotal" db:"subtotal"`
	TaxAmount      money.Amount  `json:"tax_amount" db:"tax_amount"`
	TotalAmount    money.Amount  `json:"total_amount" db:"total_amount"`
	PaidAmount     money.Amount  `json:"paid_amount" db:"paid_amount"`
	PaymentMethod  PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	Notes          string        `json:"notes" db:"notes"`
	CreatedBy      int64         `json:"created_by" db:"created_by"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	Items          []Item        `json:"items,omitempty" db:"-"`
}

// BalanceDue is always derived from the stored amounts. Overpaid
// invoices carry a negative balance.
func (i Invoice) BalanceDue() money.Amount {
	return i.TotalAmount.Sub(i.PaidAmount)
}

func (i Invoice) MarshalJSON() ([]byte, error) {
	type alias Invoice
	return json.Marshal(struct {
		alias
		BalanceDue money.Amount `json:"balance_due"`
	}{alias(i), i.BalanceDue()})
}

type Item struct {
	ID          int64        `json:"id" db:"id"`
	InvoiceID   int64        `json:"invoice_id" db:"invoice_id"`
	Description string       `json:"description" db:"description"`
	Quantity    money.Amount `json:"quantity" db:"quantity"`
	UnitPrice   money.Amount `json:"unit_price" db:"unit_price"`
	LineTotal   money.Amount `json:"line_total" db:"line_total"`
	Position    int          `json:"position" db:"position"`
}
