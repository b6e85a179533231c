package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"coinfolio/internal/models"
	"coinfolio/internal/service"

	"github.com/google/subcommands"
)

type tickersCmd struct {
	query string
	limit int
}

func (*tickersCmd) Name() string     { return "tickers" }
func (*tickersCmd) Synopsis() string { return "search the live ticker list" }
func (*tickersCmd) Usage() string {
	return `coinctl tickers [-q <text>] [-n <limit>]

  Lists symbols from the ticker feed whose name contains <text>, ignoring case.
`
}

func (c *tickersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "case-insensitive symbol filter")
	f.IntVar(&c.limit, "n", 50, "maximum rows to print, 0 for all")
}

func (c *tickersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := s.requireSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	entries := service.Filter(s.tickers.Snapshot(), c.query)
	if c.limit > 0 && len(entries) > c.limit {
		entries = entries[:c.limit]
	}
	printMarkdown(TickersMarkdown(entries, s.store.Holdings()))
	return subcommands.ExitSuccess
}

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "show the portfolio with current values" }
func (*listCmd) Usage() string {
	return `coinctl list

  Shows every holding with its unit, last price and value. When the ticker
  feed cannot be reached the saved portfolio is shown without prices.
`
}
func (*listCmd) SetFlags(*flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	holdings := s.store.Holdings()
	if err := s.requireSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; showing saved portfolio\n", err)
		holdings = s.store.Load(ctx)
	}
	printMarkdown(PortfolioMarkdown(holdings))
	return subcommands.ExitSuccess
}

type chartCmd struct{}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "print the portfolio composition" }
func (*chartCmd) Usage() string {
	return `coinctl chart

  Prints each holding's share of the total unit count.
`
}
func (*chartCmd) SetFlags(*flag.FlagSet) {}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := s.requireSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(ChartMarkdown(service.ChartRows(s.store.Holdings())))
	return subcommands.ExitSuccess
}

type addCmd struct{}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a symbol, or update it when already held" }
func (*addCmd) Usage() string {
	return `coinctl add <symbol> [unit]

  Adds <symbol> with [unit] (default 1, clamped to 1..100000). When the
  symbol is already in the portfolio its unit is updated instead.
`
}
func (*addCmd) SetFlags(*flag.FlagSet) {}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "Error: add requires <symbol> [unit]")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := s.requireSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	item, ok := s.tickers.Lookup(f.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown symbol %q\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	unit := models.ParseUnit(f.Arg(1))
	_, added, err := s.store.Put(ctx, item, unit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	verb := "updated"
	if added {
		verb = "added"
	}
	fmt.Printf("%s %s: %s units\n", verb, item.Symbol, unit)
	return subcommands.ExitSuccess
}

type updateCmd struct{}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "change the unit of a held symbol" }
func (*updateCmd) Usage() string {
	return `coinctl update <symbol> <unit>
`
}
func (*updateCmd) SetFlags(*flag.FlagSet) {}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: update requires <symbol> <unit>")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := s.requireSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	symbol := strings.ToUpper(f.Arg(0))
	unit := models.ParseUnit(f.Arg(1))
	_, found, err := s.store.Update(ctx, symbol, unit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: %s is not in the portfolio\n", symbol)
		return subcommands.ExitFailure
	}
	fmt.Printf("updated %s: %s units\n", symbol, unit)
	return subcommands.ExitSuccess
}

type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "drop a symbol from the portfolio" }
func (*removeCmd) Usage() string {
	return `coinctl remove <symbol>
`
}
func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: remove requires <symbol>")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := s.requireSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	symbol := strings.ToUpper(f.Arg(0))
	_, removed, err := s.store.Remove(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if !removed {
		fmt.Printf("%s was not in the portfolio\n", symbol)
		return subcommands.ExitSuccess
	}
	fmt.Printf("removed %s\n", symbol)
	return subcommands.ExitSuccess
}
