package calc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-billing/meridian/internal/billing/money"
)

func line(qty, price string) Line {
	return Line{Quantity: money.MustParse(qty), UnitPrice: money.MustParse(price)}
}

func TestLineTotalRounds(t *testing.T) {
	require.Equal(t, "33.63", LineTotal(money.MustParse("3.33"), money.MustParse("10.10")).String())
	require.Equal(t, "0.00", LineTotal(money.Zero(), money.MustParse("99.99")).String())
}

func TestForQuotation(t *testing.T) {
	totals := ForQuotation([]Line{
		line("2", "100.00"),
		line("1", "50.00"),
	}, money.MustParse("5"))

	require.Equal(t, "250.00", totals.Subtotal.String())
	require.Equal(t, "12.50", totals.TaxAmount.String())
	require.Equal(t, "262.50", totals.TotalAmount.String())
}

func TestForQuotationNoItems(t *testing.T) {
	totals := ForQuotation(nil, money.MustParse("5"))
	require.True(t, totals.Subtotal.IsZero())
	require.True(t, totals.TotalAmount.IsZero())
}

func TestForInvoicePercentageDiscount(t *testing.T) {
	totals, err := ForInvoice([]Line{
		line("10", "100.00"),
	}, money.MustParse("5"), DiscountPercentage, money.MustParse("10"))
	require.NoError(t, err)

	require.Equal(t, "1000.00", totals.Subtotal.String())
	require.Equal(t, "100.00", totals.DiscountAmount.String())
	require.Equal(t, "45.00", totals.TaxAmount.String())
	require.Equal(t, "945.00", totals.TotalAmount.String())
}

func TestForInvoiceFixedDiscount(t *testing.T) {
	totals, err := ForInvoice([]Line{
		line("1", "200.00"),
	}, money.MustParse("5"), DiscountFixed, money.MustParse("50.00"))
	require.NoError(t, err)

	require.Equal(t, "50.00", totals.DiscountAmount.String())
	require.Equal(t, "7.50", totals.TaxAmount.String())
	require.Equal(t, "157.50", totals.TotalAmount.String())
}

func TestForInvoiceDiscountClampsTaxBase(t *testing.T) {
	totals, err := ForInvoice([]Line{
		line("1", "100.00"),
	}, money.MustParse("5"), DiscountFixed, money.MustParse("150.00"))
	require.NoError(t, err)

	require.Equal(t, "100.00", totals.Subtotal.String())
	require.Equal(t, "150.00", totals.DiscountAmount.String())
	require.Equal(t, "0.00", totals.TaxAmount.String())
	require.Equal(t, "0.00", totals.TotalAmount.String())
}

func TestForInvoiceNoDiscount(t *testing.T) {
	totals, err := ForInvoice([]Line{line("2", "100.00")}, money.MustParse("0"), DiscountNone, money.Zero())
	require.NoError(t, err)
	require.Equal(t, "200.00", totals.TotalAmount.String())
	require.True(t, totals.TaxAmount.IsZero())
}

func TestForInvoiceUnknownMode(t *testing.T) {
	_, err := ForInvoice(nil, money.Zero(), DiscountMode("coupon"), money.Zero())
	require.ErrorIs(t, err, ErrUnknownDiscountMode)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	lines := []Line{line("3.33", "10.10"), line("1.50", "7.77")}
	first, err := ForInvoice(lines, money.MustParse("5"), DiscountPercentage, money.MustParse("12.5"))
	require.NoError(t, err)
	second, err := ForInvoice(lines, money.MustParse("5"), DiscountPercentage, money.MustParse("12.5"))
	require.NoError(t, err)

	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	require.True(t, first.TaxAmount.Equal(second.TaxAmount))
	require.True(t, first.TotalAmount.Equal(second.TotalAmount))
}
