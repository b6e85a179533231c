package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	cases := map[string]string{
		"":         "1",
		"   ":      "1",
		"abc":      "1",
		"3":        "3",
		" 7 ":      "7",
		"2.5":      "2.5",
		"0":        "1",
		"-4":       "1",
		"100000":   "100000",
		"100000.1": "100000",
		"1e9":      "100000",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseUnit(in).String(), "input %q", in)
	}
}

func TestClampUnit(t *testing.T) {
	assert.True(t, ClampUnit(decimal.NewFromInt(42)).Equal(U(42)))
	assert.True(t, ClampUnit(decimal.NewFromFloat(0.5)).Equal(U(1)))
	assert.True(t, ClampUnit(decimal.NewFromInt(200000)).Equal(U(100000)))
	assert.True(t, U(5).InRange())
	assert.False(t, NewUnit(decimal.Zero).InRange())
}

func TestHoldingJSON(t *testing.T) {
	h := Holding{
		TickerEntry: TickerEntry{Symbol: "BTCUSDT", LastPrice: "65000", WeightedAvgPrice: "64800"},
		Unit:        U(2),
	}
	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"BTCUSDT","lastPrice":"65000","weightedAvgPrice":"64800","unit":2}`, string(b))

	var back Holding
	require.NoError(t, json.Unmarshal([]byte(`{"symbol":"ETHUSDT","unit":"3.5"}`), &back))
	assert.Equal(t, "ETHUSDT", back.Symbol)
	assert.Equal(t, "3.5", back.Unit.String())
}

func TestHoldingValue(t *testing.T) {
	h := Holding{TickerEntry: TickerEntry{Symbol: "ETHUSDT", LastPrice: "3400.50"}, Unit: U(2)}
	assert.Equal(t, "6801", h.Value().String())

	h.LastPrice = "n/a"
	assert.True(t, h.Value().IsZero())
}
