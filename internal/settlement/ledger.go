package settlement

import "github.com/shopspring/decimal"

// Ledger is a read model over an order's payment rows. All sums are
// recomputed from the rows every time; nothing is patched incrementally.
type Ledger struct {
	payments []Payment
}

func NewLedger(payments []Payment) Ledger {
	return Ledger{payments: payments}
}

func (l Ledger) Payments() []Payment {
	return l.payments
}

func (l Ledger) sum(include func(Payment) bool, value func(Payment) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.payments {
		if include(p) {
			total = total.Add(value(p))
		}
	}
	return total
}

func collected(p Payment) decimal.Decimal { return p.Collected() }

func (l Ledger) ApprovedSum() decimal.Decimal {
	return l.sum(func(p Payment) bool { return p.Status == PaymentApproved }, collected)
}

func (l Ledger) PendingSum() decimal.Decimal {
	return l.sum(func(p Payment) bool { return p.Status == PaymentPending }, collected)
}

// PendingSumWithoutDiscount only counts pending payments that carry no
// discount.
func (l Ledger) PendingSumWithoutDiscount() decimal.Decimal {
	return l.sum(func(p Payment) bool {
		return p.Status == PaymentPending && !isPendingDiscount(p)
	}, collected)
}

func (l Ledger) HasPendingDiscount() bool {
	for _, p := range l.payments {
		if isPendingDiscount(p) {
			return true
		}
	}
	return false
}

func isPendingDiscount(p Payment) bool {
	return p.Status == PaymentPending && p.DiscAmount.IsPositive()
}

// WithoutPendingDiscounts drops every pending row that carries a discount.
func (l Ledger) WithoutPendingDiscounts() Ledger {
	kept := make([]Payment, 0, len(l.payments))
	for _, p := range l.payments {
		if !isPendingDiscount(p) {
			kept = append(kept, p)
		}
	}
	return NewLedger(kept)
}

// HasSettlingRows reports whether any row can count toward completion: an
// approved row, or a pending row the discount policy lets count.
func (l Ledger) HasSettlingRows(discountApprovalRequired bool) bool {
	for _, p := range l.payments {
		switch {
		case p.Status == PaymentApproved:
			return true
		case p.Status == PaymentPending && !(discountApprovalRequired && isPendingDiscount(p)):
			return true
		}
	}
	return false
}

func (l Ledger) ActiveDiscount() decimal.Decimal {
	return l.sum(func(p Payment) bool { return p.Status.IsActive() }, func(p Payment) decimal.Decimal { return p.DiscAmount })
}

func (l Ledger) ActiveTip() decimal.Decimal {
	return l.sum(func(p Payment) bool { return p.Status.IsActive() }, func(p Payment) decimal.Decimal { return p.TipAmount })
}

// RoundoffAggregate is the order-level roundoff: every adjustment of a
// payment that has not been voided or rejected.
func (l Ledger) RoundoffAggregate() decimal.Decimal {
	return l.sum(func(p Payment) bool { return p.Status.IsActive() }, func(p Payment) decimal.Decimal { return p.RoundoffAdjustmentAmt })
}

func (l Ledger) Count(status PaymentStatus) int {
	n := 0
	for _, p := range l.payments {
		if p.Status == status {
			n++
		}
	}
	return n
}
