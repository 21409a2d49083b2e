package money

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// TaxBreakdown is the GST on a net subtotal and its central/state halves.
// CGST + SGST always equals Tax exactly.
type TaxBreakdown struct {
	NetSubtotal decimal.Decimal
	Tax         decimal.Decimal
	CGST        decimal.Decimal
	SGST        decimal.Decimal
}

// ComputeTax applies the discount before tax. A discount at or above the
// subtotal yields a zero net subtotal and zero tax.
func ComputeTax(subtotal, discount, gstPercent decimal.Decimal) TaxBreakdown {
	net := NetSubtotal(subtotal, discount)
	if gstPercent.IsNegative() {
		gstPercent = decimal.Zero
	}
	tax := Round2(net.Mul(gstPercent).Div(hundred))
	cgst, sgst := SplitGST(tax)
	return TaxBreakdown{NetSubtotal: net, Tax: tax, CGST: cgst, SGST: sgst}
}

func NetSubtotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	net := subtotal.Sub(discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return Round2(net)
}

// SplitGST halves tax into CGST and puts the rounding remainder into SGST.
func SplitGST(tax decimal.Decimal) (cgst, sgst decimal.Decimal) {
	tax = Round2(tax)
	cgst = Round2(tax.Div(two))
	sgst = tax.Sub(cgst)
	return cgst, sgst
}

// ProrateTax returns the share of an order's tax carried by a payment of
// amount against total. The share is capped at the whole tax.
func ProrateTax(tax, amount, total decimal.Decimal) TaxBreakdown {
	if !total.IsPositive() || !amount.IsPositive() || !tax.IsPositive() {
		return TaxBreakdown{Tax: decimal.Zero, CGST: decimal.Zero, SGST: decimal.Zero, NetSubtotal: decimal.Zero}
	}
	share := tax
	if amount.LessThan(total) {
		share = Round2(tax.Mul(amount).Div(total))
	}
	cgst, sgst := SplitGST(share)
	return TaxBreakdown{NetSubtotal: decimal.Zero, Tax: share, CGST: cgst, SGST: sgst}
}
