package receipts

import "time"

type CreateReceiptRequest struct {
	InvoiceID       int64     `json:"invoice_id" validate:"required,gt=0"`
	Amount          string    `json:"amount" validate:"required"`
	PaymentMethod   string    `json:"payment_method" validate:"required,oneof=cash card bank_transfer check online"`
	PaymentDate     time.Time `json:"payment_date" validate:"required"`
	ReferenceNumber string    `json:"reference_number" validate:"max=100"`
	Notes           string    `json:"notes"`
}

// UpdateReceiptRequest covers the descriptive fields only. The amount
// is part of the ledger and cannot change after creation.
type UpdateReceiptRequest struct {
	ReferenceNumber *string `json:"reference_number,omitempty" validate:"omitempty,max=100"`
	Notes           *string `json:"notes,omitempty"`
}

type ListReceiptsRequest struct {
	InvoiceID  *int64 `json:"invoice_id,omitempty"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	Limit      int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int    `json:"offset" validate:"gte=0"`
}
