package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"coinfolio/internal/database"
	"coinfolio/internal/metrics"
	"coinfolio/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testKey = "portfolio"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

func newTestStore(t *testing.T) (*Store, *database.MemoryStore) {
	t.Helper()
	kv := database.NewMemory()
	return NewStore(kv, testKey, quietLogger(), newTestMetrics()), kv
}

// flakyKV is a MemoryStore whose reads and writes can be made to fail.
type flakyKV struct {
	*database.MemoryStore

	mu     sync.Mutex
	getErr error
	setErr error
}

func newFlakyKV() *flakyKV {
	return &flakyKV{MemoryStore: database.NewMemory()}
}

func (f *flakyKV) failGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

func (f *flakyKV) failSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.setErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func ticker(symbol, last, avg string) models.TickerEntry {
	return models.TickerEntry{Symbol: symbol, LastPrice: last, WeightedAvgPrice: avg}
}

func holding(symbol string, unit int64) models.Holding {
	return models.Holding{TickerEntry: models.TickerEntry{Symbol: symbol}, Unit: models.U(unit)}
}

func persist(t *testing.T, kv database.KV, hs []models.Holding) {
	t.Helper()
	b, err := json.Marshal(hs)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), testKey, b))
}

func symbols(hs []models.Holding) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Symbol)
	}
	return out
}

func unitOf(hs []models.Holding, symbol string) string {
	for _, h := range hs {
		if h.Symbol == symbol {
			return h.Unit.String()
		}
	}
	return ""
}
