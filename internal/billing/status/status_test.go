package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuotationTransitions(t *testing.T) {
	require.NoError(t, TransitionQuotation(QuotationDraft, QuotationSent))
	require.NoError(t, TransitionQuotation(QuotationDraft, QuotationRejected))
	require.NoError(t, TransitionQuotation(QuotationSent, QuotationAccepted))
	require.NoError(t, TransitionQuotation(QuotationSent, QuotationExpired))

	require.Error(t, TransitionQuotation(QuotationDraft, QuotationAccepted))
	require.Error(t, TransitionQuotation(QuotationAccepted, QuotationDraft))
	require.Error(t, TransitionQuotation(QuotationRejected, QuotationSent))
	require.Error(t, TransitionQuotation(QuotationExpired, QuotationSent))
}

func TestInvoiceTransitions(t *testing.T) {
	require.NoError(t, TransitionInvoice(InvoiceDraft, InvoiceSent))
	require.NoError(t, TransitionInvoice(InvoiceDraft, InvoiceCancelled))
	require.NoError(t, TransitionInvoice(InvoiceSent, InvoicePaid))
	require.NoError(t, TransitionInvoice(InvoiceSent, InvoiceOverdue))
	require.NoError(t, TransitionInvoice(InvoiceOverdue, InvoicePaid))
	require.NoError(t, TransitionInvoice(InvoiceOverdue, InvoiceCancelled))

	require.Error(t, TransitionInvoice(InvoicePaid, InvoiceDraft))
	require.Error(t, TransitionInvoice(InvoicePaid, InvoiceSent))
	require.Error(t, TransitionInvoice(InvoiceCancelled, InvoiceSent))
	require.Error(t, TransitionInvoice(InvoiceDraft, InvoiceOverdue))
}

func TestInvalidTransitionErrorDetail(t *testing.T) {
	err := TransitionInvoice(InvoicePaid, InvoiceDraft)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "invoice", invalid.Doc)
	require.Equal(t, "paid", invalid.From)
	require.Equal(t, "draft", invalid.To)
}

func TestPaymentTransition(t *testing.T) {
	require.NoError(t, PaymentTransition(InvoiceDraft))
	require.NoError(t, PaymentTransition(InvoiceSent))
	require.NoError(t, PaymentTransition(InvoiceOverdue))
	require.Error(t, PaymentTransition(InvoiceCancelled))
	require.Error(t, PaymentTransition(InvoicePaid))
}

func TestPayable(t *testing.T) {
	require.True(t, Payable(InvoiceSent))
	require.True(t, Payable(InvoicePaid))
	require.False(t, Payable(InvoiceCancelled))
}

func TestValidStatuses(t *testing.T) {
	require.True(t, ValidQuotationStatus(QuotationDraft))
	require.False(t, ValidQuotationStatus("archived"))
	require.True(t, ValidInvoiceStatus(InvoiceOverdue))
	require.False(t, ValidInvoiceStatus("void"))
}
