package invoices

import (
	"fmt"

	"github.com/meridian-billing/meridian/internal/billing/money"
	"github.com/meridian-billing/meridian/internal/billing/status"
	"github.com/meridian-billing/meridian/internal/platform/httpx"
)

// ApplyPayment posts a payment against the invoice: paid_amount grows
// by amount and the invoice is promoted to paid once paid_amount covers
// total_amount. Promotion goes through the payment transition rules,
// the sanctioned shortcut around the regular table. Overpayment is
// permitted and shows as a negative balance.
//
// The caller is responsible for loading inv under a row lock and
// persisting the mutated fields within the same transaction.
func ApplyPayment(inv *Invoice, amount money.Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}
	if !status.Payable(inv.Status) {
		return &status.InvalidTransitionError{
			Doc: "invoice", From: string(inv.Status), To: string(status.InvoicePaid),
		}
	}
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	if inv.Status != status.InvoicePaid && inv.PaidAmount.GreaterThanOrEqual(inv.TotalAmount) {
		if err := status.PaymentTransition(inv.Status); err != nil {
			return err
		}
		inv.Status = status.InvoicePaid
	}
	return nil
}
