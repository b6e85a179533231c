package service

import (
	"coinfolio/internal/models"

	"github.com/shopspring/decimal"
)

type ValuedHolding struct {
	models.Holding
	Value decimal.Decimal `json:"value"`
}

// Summarize values each holding at its last price and totals the result.
func Summarize(holdings []models.Holding) ([]ValuedHolding, decimal.Decimal) {
	items := make([]ValuedHolding, 0, len(holdings))
	total := decimal.Zero
	for _, h := range holdings {
		v := h.Value()
		items = append(items, ValuedHolding{Holding: h, Value: v})
		total = total.Add(v)
	}
	return items, total
}

// ChartRows lays the portfolio out as pie chart rows keyed on symbol and
// unit, header first. An empty portfolio gets a single placeholder slice.
func ChartRows(holdings []models.Holding) [][]any {
	rows := [][]any{{"Coin", "Unit"}}
	if len(holdings) == 0 {
		return append(rows, []any{"No Coin", 1})
	}
	for _, h := range holdings {
		rows = append(rows, []any{h.Symbol, h.Unit.Decimal().InexactFloat64()})
	}
	return rows
}
