package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeRoundoff(t *testing.T) {
	cases := []struct {
		raw        string
		rounded    string
		adjustment string
	}{
		{raw: "84.40", rounded: "84", adjustment: "-0.40"},
		{raw: "84.50", rounded: "85", adjustment: "0.50"},
		{raw: "84.49", rounded: "84", adjustment: "-0.49"},
		{raw: "105.00", rounded: "105", adjustment: "0.00"},
		{raw: "0.00", rounded: "0", adjustment: "0.00"},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			r := ComputeRoundoff(d(tc.raw))
			assert.True(t, d(tc.rounded).Equal(r.Rounded), "rounded: got %s", r.Rounded)
			assert.True(t, d(tc.adjustment).Equal(r.Adjustment), "adjustment: got %s", r.Adjustment)
		})
	}
}

func TestRoundoffRoundTrip(t *testing.T) {
	for cents := int64(0); cents < 2000; cents += 7 {
		raw := decimal.New(cents, -2)
		r := ComputeRoundoff(raw)
		if !r.Raw.Add(r.Adjustment).Equal(raw.Round(0)) {
			t.Fatalf("roundoff of %s does not round-trip: adj %s", raw, r.Adjustment)
		}
	}
}

func TestNoRoundoff(t *testing.T) {
	r := NoRoundoff(d("12.34"))
	assert.True(t, r.Adjustment.IsZero())
	assert.True(t, d("12.34").Equal(r.Rounded))
}

func TestCovers(t *testing.T) {
	assert.True(t, Covers(d("84.00"), d("84.00"), StrictTolerance))
	assert.True(t, Covers(d("83.96"), d("84.00"), StrictTolerance))
	assert.False(t, Covers(d("83.90"), d("84.00"), StrictTolerance))
	assert.True(t, Covers(d("83.60"), d("84.00"), FallbackTolerance))
	assert.False(t, Covers(d("83.40"), d("84.00"), FallbackTolerance))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "84.00", Format(d("84")))
	assert.Equal(t, "-0.40", Format(d("-0.4")))
}
