package quotations

import (
	"time"

	"github.com/meridian-billing/meridian/internal/billing/status"
)

type CreateQuotationRequest struct {
	CustomerID    int64           `json:"customer_id" validate:"required,gt=0"`
	QuotationDate time.Time       `json:"quotation_date" validate:"required"`
	ValidUntil    time.Time       `json:"valid_until" validate:"required"`
	TaxRate       string          `json:"tax_rate" validate:"required"`
	Notes         string          `json:"notes"`
	Items         []CreateItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateItemReq struct {
	Description string `json:"description" validate:"required,max=255"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

type UpdateQuotationRequest struct {
	QuotationDate *time.Time       `json:"quotation_date,omitempty"`
	ValidUntil    *time.Time       `json:"valid_until,omitempty"`
	TaxRate       *string          `json:"tax_rate,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Items         *[]CreateItemReq `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type ListQuotationsRequest struct {
	CustomerID *int64                  `json:"customer_id,omitempty"`
	Status     *status.QuotationStatus `json:"status,omitempty"`
	Limit      int                     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int                     `json:"offset" validate:"gte=0"`
}
