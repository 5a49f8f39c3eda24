package invoices

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

func ledgerInvoice(s status.InvoiceStatus, total string) *Invoice {
	return &Invoice{
		Status:      s,
		TotalAmount: money.MustParse(total),
		PaidAmount:  money.Zero(),
	}
}

func TestApplyPaymentSettlesInvoice(t *testing.T) {
	inv := ledgerInvoice(status.InvoiceSent, "945.00")

	require.NoError(t, ApplyPayment(inv, money.MustParse("945.00")))
	require.Equal(t, "945.00", inv.PaidAmount.String())
	require.Equal(t, "0.00", inv.BalanceDue().String())
	require.Equal(t, status.InvoicePaid, inv.Status)
}

func TestApplyPaymentPartial(t *testing.T) {
	inv := ledgerInvoice(status.InvoiceSent, "945.00")

	require.NoError(t, ApplyPayment(inv, money.MustParse("400.00")))
	require.Equal(t, status.InvoiceSent, inv.Status)
	require.Equal(t, "545.00", inv.BalanceDue().String())

	require.NoError(t, ApplyPayment(inv, money.MustParse("545.00")))
	require.Equal(t, status.InvoicePaid, inv.Status)
	require.Equal(t, "0.00", inv.BalanceDue().String())
}

func TestApplyPaymentOverpaymentAllowed(t *testing.T) {
	inv := ledgerInvoice(status.InvoiceOverdue, "100.00")

	require.NoError(t, ApplyPayment(inv, money.MustParse("150.00")))
	require.Equal(t, status.InvoicePaid, inv.Status)
	require.Equal(t, "-50.00", inv.BalanceDue().String())

	// paid invoices still take receipts; status stays paid
	require.NoError(t, ApplyPayment(inv, money.MustParse("10.00")))
	require.Equal(t, status.InvoicePaid, inv.Status)
	require.Equal(t, "-60.00", inv.BalanceDue().String())
}

func TestApplyPaymentDraftPromotes(t *testing.T) {
	inv := ledgerInvoice(status.InvoiceDraft, "50.00")

	require.NoError(t, ApplyPayment(inv, money.MustParse("50.00")))
	require.Equal(t, status.InvoicePaid, inv.Status)
}

func TestApplyPaymentRejectsCancelled(t *testing.T) {
	inv := ledgerInvoice(status.InvoiceCancelled, "100.00")

	err := ApplyPayment(inv, money.MustParse("10.00"))
	var invalid *status.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.True(t, inv.PaidAmount.IsZero())
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	inv := ledgerInvoice(status.InvoiceSent, "100.00")

	require.ErrorIs(t, ApplyPayment(inv, money.Zero()), httpx.ErrValidation)
	require.ErrorIs(t, ApplyPayment(inv, money.MustParse("-5.00")), httpx.ErrValidation)
	require.True(t, inv.PaidAmount.IsZero())
}
