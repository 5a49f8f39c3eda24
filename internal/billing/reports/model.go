package reports

import (
	"github.com/meridian-billing/meridian/internal/billing/money"
)

// Dashboard is the headline view of the receivables position.
type Dashboard struct {
	TotalInvoiced     money.Amount   `json:"total_invoiced"`
	TotalCollected    money.Amount   `json:"total_collected"`
	TotalOutstanding  money.Amount   `json:"total_outstanding"`
	InvoiceCounts     map[string]int `json:"invoice_counts"`
	QuotationCounts   map[string]int `json:"quotation_counts"`
	CustomerCount     int            `json:"customer_count"`
	CollectionRatePct string         `json:"collection_rate_pct"`
}

// AgingBucket groups outstanding balances by how far past due they are.
type AgingBucket struct {
	Bucket string       `json:"bucket"`
	Count  int          `json:"count"`
	Amount money.Amount `json:"amount"`
}

// DebtorSummary is one customer's outstanding position.
type DebtorSummary struct {
	CustomerID   int64        `json:"customer_id"`
	CustomerName string       `json:"customer_name"`
	InvoiceCount int          `json:"invoice_count"`
	Outstanding  money.Amount `json:"outstanding"`
}

// MethodStat aggregates receipts by payment method.
type MethodStat struct {
	Method string       `json:"method"`
	Count  int          `json:"count"`
	Amount money.Amount `json:"amount"`
}
