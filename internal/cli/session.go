// Package cli implements the coinctl subcommands. Every command opens the
// configured store, fetches one ticker snapshot and reconciles the saved
// portfolio against it before doing its work.
package cli

import (
	"context"
	"fmt"

	"coinfolio/internal/config"
	"coinfolio/internal/database"
	"coinfolio/internal/metrics"
	"coinfolio/internal/service"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Register adds every command to c.
func Register(c *subcommands.Commander) {
	c.Register(&tickersCmd{}, "market")
	c.Register(&listCmd{}, "portfolio")
	c.Register(&chartCmd{}, "portfolio")
	c.Register(&addCmd{}, "portfolio")
	c.Register(&updateCmd{}, "portfolio")
	c.Register(&removeCmd{}, "portfolio")
}

type session struct {
	kv      database.KV
	store   *service.Store
	tickers *service.TickerSource
	log     *logrus.Logger
}

func openSession(ctx context.Context) (*session, error) {
	cfg := config.Load()
	log := cfg.NewLogger()
	if cfg.LogLevel == logrus.InfoLevel {
		// keep command output readable unless asked otherwise
		log.SetLevel(logrus.WarnLevel)
	}

	kv, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	store := service.NewStore(kv, cfg.StorageKey, log, m)
	tickers := service.NewTickerSource(service.NewBinanceClient(cfg.TickerURL, log), cfg.FetchTimeout, log, m)
	tickers.OnSnapshot(store.Listener())
	tickers.FetchSnapshot(ctx)

	return &session{kv: kv, store: store, tickers: tickers, log: log}, nil
}

// requireSnapshot fails when the feed could not be reached, since nothing
// can be saved without a reconciled portfolio.
func (s *session) requireSnapshot() error {
	if s.store.Synced() {
		return nil
	}
	st := s.tickers.Status()
	if st.LastError != "" {
		return fmt.Errorf("ticker feed unavailable: %s", st.LastError)
	}
	return fmt.Errorf("portfolio not reconciled: feed returned no data or storage could not be read")
}

func (s *session) Close() error {
	return s.kv.Close()
}
