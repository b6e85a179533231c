package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const DefaultTickerURL = "https://api2.binance.com/api/v3/ticker/24hr"

// Config holds the process configuration read from the environment.
type Config struct {
	Port            string
	TickerURL       string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	StorageDriver string
	StorageKey    string
	SQLitePath    string
	PostgresURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel logrus.Level
}

// Load reads a .env file if one exists and then the environment.
func Load() *Config {
	// .env is optional, production sets real env vars
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	return &Config{
		Port:            getEnv("PORT", "8080"),
		TickerURL:       getEnv("TICKER_URL", DefaultTickerURL),
		RefreshInterval: getSeconds("REFRESH_INTERVAL", 300),
		FetchTimeout:    getSeconds("FETCH_TIMEOUT", 15),

		StorageDriver: getEnv("STORAGE_DRIVER", "sqlite"),
		StorageKey:    getEnv("STORAGE_KEY", "portfolio"),
		SQLitePath:    getEnv("SQLITE_PATH", "data/portfolio.db"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		LogLevel: level,
	}
}

// NewLogger returns a logrus logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	return logger
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// getSeconds ignores non-positive values.
func getSeconds(key string, fallback int) time.Duration {
	n := fallback
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil && iv > 0 {
			n = iv
		}
	}
	return time.Duration(n) * time.Second
}
