package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"coinfolio/internal/config"

	"github.com/sirupsen/logrus"
)

// Open returns the KV selected by cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (KV, error) {
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("storage: using in-memory store, the portfolio will not survive a restart")
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite dir: %w", err)
			}
		}
		log.Infof("storage: sqlite at %s", cfg.SQLitePath)
		return OpenSQL(ctx, "sqlite3", cfg.SQLitePath, log)
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required for the postgres driver")
		}
		log.Info("storage: postgres")
		return OpenSQL(ctx, "postgres", cfg.PostgresURL, log)
	case "redis":
		return NewRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, log)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
