package billing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(id uint, qty, price string) Line {
	return Line{ID: id, Quantity: d(qty), UnitPrice: d(price)}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, d("20"))

	assert.True(t, got.Subtotal.IsZero())
	assert.True(t, got.Tax.IsZero())
	assert.True(t, got.Total.IsZero())
}

func TestComputeSubtotalIsSumOfLineTotals(t *testing.T) {
	lines := []Line{
		line(1, "2", "49.99"),
		line(2, "1.5", "80"),
		line(3, "0", "1000"),
		line(4, "3", "0.10"),
	}

	got := Compute(lines, decimal.Zero)

	want := decimal.Zero
	for _, l := range lines {
		want = want.Add(l.Quantity.Mul(l.UnitPrice))
	}
	assert.True(t, want.Round(Places).Equal(got.Subtotal), "subtotal %s, want %s", got.Subtotal, want)
	assert.True(t, got.Subtotal.Equal(d("220.28")))
	assert.True(t, got.Total.Equal(got.Subtotal))
}

func TestComputeAppliesTaxPercent(t *testing.T) {
	got := Compute([]Line{line(1, "3", "33.33")}, d("8.25"))

	assert.Equal(t, "99.99", got.Subtotal.StringFixed(2))
	assert.Equal(t, "8.25", got.Tax.StringFixed(2))
	assert.Equal(t, "108.24", got.Total.StringFixed(2))
}

func TestComputeAvoidsFloatDrift(t *testing.T) {
	lines := make([]Line, 0, 10)
	for i := 0; i < 10; i++ {
		lines = append(lines, line(uint(i+1), "1", "0.1"))
	}

	got := Compute(lines, decimal.Zero)
	assert.Equal(t, "1.00", got.Total.StringFixed(2))
}

func TestNegativeValuesCountAsZero(t *testing.T) {
	got := Compute([]Line{line(1, "-2", "10"), line(2, "1", "-5"), line(3, "1", "7")}, d("-10"))

	assert.Equal(t, "7.00", got.Total.StringFixed(2))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"12.50":  "12.5",
		" 3 ":    "3",
		"":       "0",
		"abc":    "0",
		"1,5":    "0",
		"-4":     "0",
		"NaN":    "0",
		"0.0001": "0.0001",
	}
	for in, want := range cases {
		assert.True(t, d(want).Equal(ParseAmount(in)), "ParseAmount(%q) = %s, want %s", in, ParseAmount(in), want)
	}
}

func TestLenientDecodesNumbersStringsAndGarbage(t *testing.T) {
	var in struct {
		A Lenient `json:"a"`
		B Lenient `json:"b"`
		C Lenient `json:"c"`
		D Lenient `json:"d"`
		E Lenient `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 2.5, "b": "4", "c": "x1", "d": null, "e": true}`), &in)
	require.NoError(t, err)

	assert.Equal(t, "2.5", in.A.String())
	assert.Equal(t, "4", in.B.String())
	assert.True(t, in.C.IsZero())
	assert.True(t, in.D.IsZero())
	assert.True(t, in.E.IsZero())
}
