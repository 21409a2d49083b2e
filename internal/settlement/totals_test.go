package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeOrderTotals(t *testing.T) {
	items := []OrderItem{
		{ID: 1, UnitPrice: dec("40"), Quantity: 2},
		{ID: 2, UnitPrice: dec("20"), Quantity: 1},
		{ID: 3, UnitPrice: dec("500"), Quantity: 1, IsCancelled: true},
	}

	t.Run("no payments", func(t *testing.T) {
		totals := ComputeOrderTotals(items, NewLedger(nil), dec("5"))
		assert.True(t, dec("100").Equal(totals.Subtotal))
		assert.True(t, dec("5").Equal(totals.TaxAmount))
		assert.True(t, dec("2.50").Equal(totals.CGSTAmount))
		assert.True(t, dec("2.50").Equal(totals.SGSTAmount))
		assert.True(t, dec("105").Equal(totals.TotalAmount))
	})

	t.Run("active discount and tip", func(t *testing.T) {
		ledger := NewLedger([]Payment{
			ledgerPayment(PaymentApproved, "60", "3", "20", "0"),
			ledgerPayment(PaymentRejected, "10", "2", "10", "0"),
		})
		totals := ComputeOrderTotals(items, ledger, dec("5"))
		assert.True(t, dec("20").Equal(totals.DiscountAmount))
		assert.True(t, dec("4").Equal(totals.TaxAmount))
		assert.True(t, dec("3").Equal(totals.TipAmount))
		assert.True(t, dec("87").Equal(totals.TotalAmount))
	})

	t.Run("odd tax splits without losing a cent", func(t *testing.T) {
		odd := []OrderItem{{ID: 1, UnitPrice: dec("10.10"), Quantity: 1}}
		totals := ComputeOrderTotals(odd, NewLedger(nil), dec("5"))
		assert.True(t, dec("0.51").Equal(totals.TaxAmount))
		assert.True(t, totals.CGSTAmount.Add(totals.SGSTAmount).Equal(totals.TaxAmount))
	})
}

func TestCheckTotalsInvariant(t *testing.T) {
	ok := Order{Subtotal: dec("100"), DiscountAmount: dec("20"), TaxAmount: dec("4"), TipAmount: dec("1"), TotalAmount: dec("85")}
	assert.True(t, CheckTotalsInvariant(ok))

	ok.TotalAmount = dec("85.01")
	assert.True(t, CheckTotalsInvariant(ok))

	ok.TotalAmount = dec("84")
	assert.False(t, CheckTotalsInvariant(ok))
}
