// Package status governs document lifecycle transitions for quotations
// and invoices. Transitions are table-driven; callers request a change
// and receive an InvalidTransitionError when the table forbids it.
// Time-driven changes (sent to overdue) are requested by the scheduler
// collaborator, never decided here.
package status

import "fmt"

// Quotation statuses.
type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "draft"
	QuotationSent     QuotationStatus = "sent"
	QuotationAccepted QuotationStatus = "accepted"
	QuotationRejected QuotationStatus = "rejected"
	QuotationExpired  QuotationStatus = "expired"
)

// Invoice statuses.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// InvalidTransitionError reports a disallowed status change.
type InvalidTransitionError struct {
	Doc  string
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("status: %s cannot move from %q to %q", e.Doc, e.From, e.To)
}

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationDraft: {QuotationSent, QuotationRejected},
	QuotationSent:  {QuotationAccepted, QuotationRejected, QuotationExpired},
	// accepted is terminal here; conversion consumes it separately.
	QuotationAccepted: {},
	QuotationRejected: {},
	QuotationExpired:  {},
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:     {InvoiceSent, InvoiceCancelled},
	InvoiceSent:      {InvoicePaid, InvoiceOverdue, InvoiceCancelled},
	InvoiceOverdue:   {InvoicePaid, InvoiceCancelled},
	InvoicePaid:      {},
	InvoiceCancelled: {},
}

// paymentPromotable lists the statuses from which a settling payment may
// move an invoice straight to paid. This is the one sanctioned shortcut
// around the regular table: a fully paid draft is paid, whatever the
// paperwork said. Cancelled invoices are never payable.
var paymentPromotable = map[InvoiceStatus]bool{
	InvoiceDraft:   true,
	InvoiceSent:    true,
	InvoiceOverdue: true,
}

// TransitionQuotation validates a quotation status change.
func TransitionQuotation(from, to QuotationStatus) error {
	for _, allowed := range quotationTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{Doc: "quotation", From: string(from), To: string(to)}
}

// TransitionInvoice validates an invoice status change.
func TransitionInvoice(from, to InvoiceStatus) error {
	for _, allowed := range invoiceTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{Doc: "invoice", From: string(from), To: string(to)}
}

// PaymentTransition validates the payment-driven promotion to paid.
func PaymentTransition(from InvoiceStatus) error {
	if paymentPromotable[from] {
		return nil
	}
	return &InvalidTransitionError{Doc: "invoice", From: string(from), To: string(InvoicePaid)}
}

// Payable reports whether a payment may still be applied to an invoice
// in the given status. Paid invoices accept further receipts because
// overpayment is permitted.
func Payable(s InvoiceStatus) bool {
	return s != InvoiceCancelled
}

// ValidQuotationStatus reports whether s names a known quotation status.
func ValidQuotationStatus(s QuotationStatus) bool {
	_, ok := quotationTransitions[s]
	return ok
}

// ValidInvoiceStatus reports whether s names a known invoice status.
func ValidInvoiceStatus(s InvoiceStatus) bool {
	_, ok := invoiceTransitions[s]
	return ok
}
