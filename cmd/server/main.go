package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinfolio/internal/config"
	"coinfolio/internal/database"
	"coinfolio/internal/handlers"
	"coinfolio/internal/metrics"
	"coinfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage init failed: %v", err)
	}
	defer kv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	store := service.NewStore(kv, cfg.StorageKey, logger, m)

	tickers := service.NewTickerSource(service.NewBinanceClient(cfg.TickerURL, logger), cfg.FetchTimeout, logger, m)
	tickers.OnSnapshot(store.Listener())
	tickers.Start(ctx, cfg.RefreshInterval)

	h := handlers.NewHandler(store, tickers, m, logger)
	rg := gin.Default()
	h.Register(rg)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: rg}
	go func() {
		logger.Infof("server starting on :%s (refresh every %s)", cfg.Port, cfg.RefreshInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http serve error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info("shutting down")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
}
