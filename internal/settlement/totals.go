package settlement

import (
	"context"

	"dinein-order-services/internal/money"

	"github.com/shopspring/decimal"
)

// ComputeOrderTotals derives every monetary field of an order from its live
// items and its ledger.
func ComputeOrderTotals(items []OrderItem, ledger Ledger, gstPercent decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		if item.IsCancelled {
			continue
		}
		subtotal = subtotal.Add(item.LineTotal())
	}
	return totalsForSubtotal(money.Round2(subtotal), ledger, gstPercent)
}

func totalsForSubtotal(subtotal decimal.Decimal, ledger Ledger, gstPercent decimal.Decimal) OrderTotals {
	discount := money.Round2(ledger.ActiveDiscount())
	tip := money.Round2(ledger.ActiveTip())
	tax := money.ComputeTax(subtotal, discount, gstPercent)

	return OrderTotals{
		Subtotal:              subtotal,
		DiscountAmount:        discount,
		TaxAmount:             tax.Tax,
		CGSTAmount:            tax.CGST,
		SGSTAmount:            tax.SGST,
		TipAmount:             tip,
		TotalAmount:           tax.NetSubtotal.Add(tax.Tax).Add(tip),
		RoundoffAdjustmentAmt: money.Round2(ledger.RoundoffAggregate()),
	}
}

// recalculate rewrites the order's totals inside the caller's transaction.
// Any failure aborts the transaction.
func recalculate(ctx context.Context, store Store, order Order, settings RestaurantSettings) (Order, Ledger, error) {
	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return order, Ledger{}, err
	}
	payments, err := store.ListPayments(ctx, order.ID)
	if err != nil {
		return order, Ledger{}, err
	}
	ledger := NewLedger(payments)

	totals := ComputeOrderTotals(items, ledger, settings.DefaultGSTPercentage)
	if err := store.UpdateOrderTotals(ctx, order.ID, totals); err != nil {
		return order, ledger, err
	}
	return totals.apply(order), ledger, nil
}

// CheckTotalsInvariant reports whether an order's stored total reconciles
// with its components within one cent.
func CheckTotalsInvariant(o Order) bool {
	expected := money.Round2(money.NetSubtotal(o.Subtotal, o.DiscountAmount).Add(o.TaxAmount).Add(o.TipAmount))
	return expected.Sub(o.TotalAmount).Abs().LessThanOrEqual(money.InvariantEpsilon)
}
