package cli

import (
	"fmt"
	"strings"

	"coinfolio/internal/models"
	"coinfolio/internal/service"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

// formatUSD displays d, rounded to cents. USDT pairs are shown as dollars.
func formatUSD(d decimal.Decimal) string {
	return money.New(d.Shift(2).Round(0).IntPart(), money.USD).Display()
}

func PortfolioMarkdown(holdings []models.Holding) string {
	var b strings.Builder
	b.WriteString("# Portfolio\n\n")
	if len(holdings) == 0 {
		b.WriteString("No Coin in the Portfolio!\n")
		return b.String()
	}
	items, total := service.Summarize(holdings)
	b.WriteString("| Symbol | Unit | Last Price | Weighted Avg | Value |\n")
	b.WriteString("|:---|---:|---:|---:|---:|\n")
	for _, it := range items {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", it.Symbol, it.Unit, orDash(it.LastPrice), orDash(it.WeightedAvgPrice), formatUSD(it.Value))
	}
	fmt.Fprintf(&b, "\n**Total:** %s\n", formatUSD(total))
	return b.String()
}

func TickersMarkdown(entries []models.TickerEntry, holdings []models.Holding) string {
	held := make(map[string]models.Unit, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = h.Unit
	}

	var b strings.Builder
	b.WriteString("| Symbol | Last Price | Weighted Avg | Held |\n")
	b.WriteString("|:---|---:|---:|---:|\n")
	for _, e := range entries {
		unit := ""
		if u, ok := held[e.Symbol]; ok {
			unit = u.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", e.Symbol, orDash(e.LastPrice), orDash(e.WeightedAvgPrice), unit)
	}
	fmt.Fprintf(&b, "\n%d symbols\n", len(entries))
	return b.String()
}

// ChartMarkdown renders pie rows as a share table.
func ChartMarkdown(rows [][]any) string {
	var b strings.Builder
	b.WriteString("| Coin | Unit | Share |\n")
	b.WriteString("|:---|---:|---:|\n")

	var total float64
	for _, r := range rows[1:] {
		total += toFloat(r[1])
	}
	for _, r := range rows[1:] {
		v := toFloat(r[1])
		share := 0.0
		if total > 0 {
			share = v / total * 100
		}
		fmt.Fprintf(&b, "| %v | %v | %.1f%% |\n", r[0], r[1], share)
	}
	return b.String()
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
