package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(values ...string) []Money {
	out := make([]Money, len(values))
	for i, v := range values {
		out[i] = MustMoney(v)
	}
	return out
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		prices []Money
		items  string
		tax    string
		total  string
	}{
		{"two courses", money("20.00", "10.00"), "30.00", "4.50", "34.50"},
		{"single course", money("19.99"), "19.99", "3.00", "22.99"},
		{"tax rounds half up", money("0.10"), "0.10", "0.02", "0.12"},
		{"three cents", money("0.03"), "0.03", "0.00", "0.03"},
		{"empty", nil, "0.00", "0.00", "0.00"},
		{"free course", money("0"), "0.00", "0.00", "0.00"},
		{"sub-cent inputs", money("10.005", "0.004"), "10.01", "1.50", "11.51"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.prices)
			assert.Equal(t, tt.items, got.ItemsPrice.String())
			assert.Equal(t, tt.tax, got.TaxPrice.String())
			assert.Equal(t, tt.total, got.TotalPrice.String())
			assert.NoError(t, got.Valid())
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	prices := money("12.34", "56.78", "9.99")
	first := Calculate(prices)
	for i := 0; i < 10; i++ {
		got := Calculate(prices)
		assert.True(t, first.TotalPrice.Equal(got.TotalPrice))
		assert.True(t, first.TaxPrice.Equal(got.TaxPrice))
	}
}

func TestCalculate_TaxIsFifteenPercentOfRoundedItems(t *testing.T) {
	got := Calculate(money("33.33", "33.33", "33.33"))
	assert.Equal(t, "99.99", got.ItemsPrice.String())
	assert.Equal(t, "15.00", got.TaxPrice.String())
	assert.Equal(t, "114.99", got.TotalPrice.String())
}

func TestTotalsValid_RejectsNegative(t *testing.T) {
	got := Calculate(money("-5.00"))
	assert.ErrorIs(t, got.Valid(), ErrInvalidTotals)
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{MustMoney("34.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":34.50}`, string(data))
	assert.Contains(t, string(data), "34.50")

	var decoded struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.5","b":7}`), &decoded))
	assert.Equal(t, "12.50", decoded.A.String())
	assert.Equal(t, "7.00", decoded.B.String())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"twelve"}`), &decoded))
}

func TestMoneyScanAndValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("19.90"))
	assert.Equal(t, "19.90", m.String())

	require.NoError(t, m.Scan(float64(4.5)))
	assert.Equal(t, "4.50", m.String())

	v, err := MustMoney("3").Value()
	require.NoError(t, err)
	assert.Equal(t, "3.00", v)
}

func TestParseMoney(t *testing.T) {
	_, err := ParseMoney("abc")
	assert.Error(t, err)

	m, err := ParseMoney("1.005")
	require.NoError(t, err)
	assert.Equal(t, "1.01", m.Round().String())
}
