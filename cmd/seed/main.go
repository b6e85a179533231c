package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"coinfolio/internal/config"
	"coinfolio/internal/database"
	"coinfolio/internal/models"
)

func main() {
	pairs := flag.String("holdings", "BTCUSDT=2,ETHUSDT=3,BNBUSDT=10", "comma separated SYMBOL=unit pairs")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx := context.Background()
	kv, err := database.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer kv.Close()

	holdings, err := parseHoldings(*pairs)
	if err != nil {
		log.Fatal(err)
	}

	// Prices are left empty; the next snapshot fills them in during reconciliation.
	raw, err := json.Marshal(holdings)
	if err != nil {
		log.Fatalf("encode holdings: %v", err)
	}
	if err := kv.Set(ctx, cfg.StorageKey, raw); err != nil {
		log.Fatalf("write %q: %v", cfg.StorageKey, err)
	}

	fmt.Printf("Seeded %d holdings into %s storage under key %q\n", len(holdings), cfg.StorageDriver, cfg.StorageKey)
	for _, h := range holdings {
		fmt.Printf("  %-12s %s\n", h.Symbol, h.Unit)
	}
	fmt.Println("Start the server or run `coinctl list` to reconcile against live prices.")
}

func parseHoldings(s string) ([]models.Holding, error) {
	var out []models.Holding
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, unit, _ := strings.Cut(part, "=")
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			return nil, fmt.Errorf("missing symbol in %q", part)
		}
		if seen[sym] {
			return nil, fmt.Errorf("duplicate symbol %s", sym)
		}
		seen[sym] = true
		out = append(out, models.Holding{
			TickerEntry: models.TickerEntry{Symbol: sym},
			Unit:        models.ParseUnit(strings.TrimSpace(unit)),
		})
	}
	return out, nil
}
