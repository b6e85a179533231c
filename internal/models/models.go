package models

import "github.com/shopspring/decimal"

// TickerEntry is one symbol of the 24h ticker feed. Prices are kept as the
// decimal strings the feed sends.
type TickerEntry struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	WeightedAvgPrice   string `json:"weightedAvgPrice"`
	PriceChange        string `json:"priceChange,omitempty"`
	PriceChangePercent string `json:"priceChangePercent,omitempty"`
	HighPrice          string `json:"highPrice,omitempty"`
	LowPrice           string `json:"lowPrice,omitempty"`
	Volume             string `json:"volume,omitempty"`
	QuoteVolume        string `json:"quoteVolume,omitempty"`
	CloseTime          int64  `json:"closeTime,omitempty"`
}

// LastPriceDecimal parses LastPrice. Unparseable prices are reported as zero.
func (t TickerEntry) LastPriceDecimal() decimal.Decimal {
	p, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return decimal.Zero
	}
	return p
}

// Holding is a ticker entry plus the quantity the user holds.
type Holding struct {
	TickerEntry
	Unit Unit `json:"unit"`
}

// Value is unit times last price.
func (h Holding) Value() decimal.Decimal {
	return h.Unit.Decimal().Mul(h.LastPriceDecimal())
}
