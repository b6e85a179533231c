package service

import (
	"strings"

	"coinfolio/internal/models"
)

// Reconcile rebuilds holdings from a fresh snapshot. Every persisted holding
// whose symbol is in the snapshot comes back with the snapshot's price fields
// and its stored unit; the rest are dropped. Output follows snapshot order.
func Reconcile(snapshot []models.TickerEntry, persisted []models.Holding) []models.Holding {
	out := make([]models.Holding, 0, len(persisted))
	for _, item := range snapshot {
		for _, p := range persisted {
			if item.Symbol == p.Symbol {
				out = append(out, models.Holding{TickerEntry: item, Unit: p.Unit})
			}
		}
	}
	return out
}

// Filter returns the snapshot entries whose symbol contains query, ignoring
// case. An empty query matches everything.
func Filter(snapshot []models.TickerEntry, query string) []models.TickerEntry {
	out := []models.TickerEntry{}
	q := strings.ToLower(query)
	for _, item := range snapshot {
		if strings.Contains(strings.ToLower(item.Symbol), q) {
			out = append(out, item)
		}
	}
	return out
}
