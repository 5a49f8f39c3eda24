// Package calc computes document totals for quotations and invoices.
// Functions here are pure: they read line values and rates, return the
// derived amounts, and never touch status or payments. Calling twice
// over the same inputs yields identical results.
package calc

import (
	"fmt"

	"github.com/meridian-billing/meridian/internal/billing/money"
)

// DiscountMode selects how an invoice discount is derived.
type DiscountMode string

const (
	DiscountNone       DiscountMode = "none"
	DiscountPercentage DiscountMode = "percentage"
	DiscountFixed      DiscountMode = "fixed"
)

// ErrUnknownDiscountMode reports an unrecognised discount mode.
var ErrUnknownDiscountMode = fmt.Errorf("calc: unknown discount mode")

// Line carries the priced inputs of one document row.
type Line struct {
	Quantity  money.Amount
	UnitPrice money.Amount
}

// LineTotal returns quantity × unit price rounded to two places.
func LineTotal(quantity, unitPrice money.Amount) money.Amount {
	return quantity.Mul(unitPrice)
}

// QuotationTotals are the derived amounts of a quotation.
type QuotationTotals struct {
	Subtotal    money.Amount
	TaxAmount   money.Amount
	TotalAmount money.Amount
}

// ForQuotation aggregates lines in the order given. Summing in insertion
// order keeps the result deterministic across recomputations.
func ForQuotation(lines []Line, taxRate money.Amount) QuotationTotals {
	subtotal := money.Zero()
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line.Quantity, line.UnitPrice))
	}
	tax := subtotal.Percent(taxRate)
	return QuotationTotals{
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
	}
}

// InvoiceTotals are the derived amounts of an invoice.
type InvoiceTotals struct {
	Subtotal       money.Amount
	DiscountAmount money.Amount
	TaxAmount      money.Amount
	TotalAmount    money.Amount
}

// ForInvoice aggregates lines and applies the discount before tax. A
// discount larger than the subtotal clamps the tax base at zero rather
// than letting it go negative.
func ForInvoice(lines []Line, taxRate money.Amount, mode DiscountMode, discountValue money.Amount) (InvoiceTotals, error) {
	subtotal := money.Zero()
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line.Quantity, line.UnitPrice))
	}

	var discount money.Amount
	switch mode {
	case DiscountNone, "":
		discount = money.Zero()
	case DiscountPercentage:
		discount = subtotal.Percent(discountValue)
	case DiscountFixed:
		discount = discountValue
	default:
		return InvoiceTotals{}, fmt.Errorf("%w: %q", ErrUnknownDiscountMode, mode)
	}

	base := subtotal.Sub(discount)
	if base.IsNegative() {
		base = money.Zero()
	}
	tax := base.Percent(taxRate)
	return InvoiceTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    base.Add(tax),
	}, nil
}
