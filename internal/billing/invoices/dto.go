package invoices

import (
	"time"

	"github.com/meridian-billing/meridian/internal/billing/status"
)

type CreateInvoiceRequest struct {
	CustomerID    int64           `json:"customer_id" validate:"required,gt=0"`
	InvoiceDate   time.Time       `json:"invoice_date" validate:"required"`
	DueDate       time.Time       `json:"due_date" validate:"required"`
	TaxRate       string          `json:"tax_rate" validate:"required"`
	DiscountMode  string          `json:"discount_mode" validate:"omitempty,oneof=none percentage fixed"`
	DiscountValue string          `json:"discount_value"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer check online"`
	Notes         string          `json:"notes"`
	Items         []CreateItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateItemReq struct {
	Description string `json:"description" validate:"required,max=255"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

type UpdateInvoiceRequest struct {
	InvoiceDate   *time.Time       `json:"invoice_date,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	TaxRate       *string          `json:"tax_rate,omitempty"`
	DiscountMode  *string          `json:"discount_mode,omitempty" validate:"omitempty,oneof=none percentage fixed"`
	DiscountValue *string          `json:"discount_value,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card bank_transfer check online"`
	Notes         *string          `json:"notes,omitempty"`
	Items         *[]CreateItemReq `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type ListInvoicesRequest struct {
	CustomerID *int64                `json:"customer_id,omitempty"`
	Status     *status.InvoiceStatus `json:"status,omitempty"`
	Limit      int                   `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int                   `json:"offset" validate:"gte=0"`
}

type ConvertQuotationRequest struct {
	QuotationID int64     `json:"quotation_id" validate:"required,gt=0"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}
