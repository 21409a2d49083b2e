package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTax(t *testing.T) {
	cases := []struct {
		name     string
		subtotal string
		discount string
		gst      string
		tax      string
		cgst     string
		sgst     string
	}{
		{name: "plain five percent", subtotal: "100.00", discount: "0", gst: "5", tax: "5.00", cgst: "2.50", sgst: "2.50"},
		{name: "discount applied before tax", subtotal: "100.00", discount: "20.00", gst: "5", tax: "4.00", cgst: "2.00", sgst: "2.00"},
		{name: "odd cent goes to sgst", subtotal: "10.10", discount: "0", gst: "5", tax: "0.51", cgst: "0.26", sgst: "0.25"},
		{name: "half cent rounds away from zero", subtotal: "0.50", discount: "0", gst: "5", tax: "0.03", cgst: "0.02", sgst: "0.01"},
		{name: "full discount", subtotal: "50.00", discount: "50.00", gst: "5", tax: "0.00", cgst: "0.00", sgst: "0.00"},
		{name: "discount above subtotal", subtotal: "50.00", discount: "80.00", gst: "18", tax: "0.00", cgst: "0.00", sgst: "0.00"},
		{name: "zero rate", subtotal: "99.99", discount: "0", gst: "0", tax: "0.00", cgst: "0.00", sgst: "0.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTax(d(tc.subtotal), d(tc.discount), d(tc.gst))
			assert.True(t, d(tc.tax).Equal(got.Tax), "tax: got %s", got.Tax)
			assert.True(t, d(tc.cgst).Equal(got.CGST), "cgst: got %s", got.CGST)
			assert.True(t, d(tc.sgst).Equal(got.SGST), "sgst: got %s", got.SGST)
			assert.True(t, got.CGST.Add(got.SGST).Equal(got.Tax))
		})
	}
}

func TestSplitGSTNeverLosesRemainder(t *testing.T) {
	for cents := int64(0); cents < 500; cents++ {
		tax := decimal.New(cents, -2)
		cgst, sgst := SplitGST(tax)
		if !cgst.Add(sgst).Equal(tax) {
			t.Fatalf("split of %s lost remainder: %s + %s", tax, cgst, sgst)
		}
	}
}

func TestProrateTax(t *testing.T) {
	full := ProrateTax(d("4.00"), d("84.00"), d("84.00"))
	assert.True(t, d("4.00").Equal(full.Tax))

	half := ProrateTax(d("5.00"), d("52.50"), d("105.00"))
	assert.True(t, d("2.50").Equal(half.Tax))
	assert.True(t, half.CGST.Add(half.SGST).Equal(half.Tax))

	over := ProrateTax(d("5.00"), d("200.00"), d("105.00"))
	assert.True(t, d("5.00").Equal(over.Tax))

	zero := ProrateTax(d("0"), d("0"), d("0"))
	assert.True(t, zero.Tax.IsZero())
}
