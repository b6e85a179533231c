package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coinfolio/internal/metrics"
	"coinfolio/internal/models"

	"github.com/sirupsen/logrus"
)

// SnapshotListener is called after every successful fetch, on the fetching
// goroutine.
type SnapshotListener func(ctx context.Context, snapshot []models.TickerEntry)

// TickerProvider is what the command surface needs from a ticker source.
type TickerProvider interface {
	Snapshot() []models.TickerEntry
	Lookup(symbol string) (models.TickerEntry, bool)
	Status() Status
	Refresh() bool
	Start(ctx context.Context, interval time.Duration)
}

type Status struct {
	IsLoading    bool       `json:"is_loading"`
	IsRefetching bool       `json:"is_refetching"`
	FetchedAt    *time.Time `json:"fetched_at,omitempty"`
	Size         int        `json:"snapshot_size"`
	LastError    string     `json:"last_error,omitempty"`
}

// TickerSource owns the latest ticker snapshot. Snapshots are replaced
// wholesale and never modified, so callers may share the returned slices
// but must not write to them.
type TickerSource struct {
	fetcher Fetcher
	timeout time.Duration
	log     *logrus.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	snapshot  []models.TickerEntry
	fetchedAt time.Time
	inFlight  bool
	lastErr   error
	listeners []SnapshotListener

	busy   atomic.Bool
	manual chan struct{}
}

func NewTickerSource(f Fetcher, timeout time.Duration, log *logrus.Logger, m *metrics.Metrics) *TickerSource {
	return &TickerSource{
		fetcher: f,
		timeout: timeout,
		log:     log,
		metrics: m,
		manual:  make(chan struct{}, 1),
	}
}

// OnSnapshot registers fn for every later successful fetch.
func (s *TickerSource) OnSnapshot(fn SnapshotListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// FetchSnapshot performs one request to the feed. A failed request keeps the
// previous snapshot, records the error in Status and returns the stale data.
func (s *TickerSource) FetchSnapshot(ctx context.Context) []models.TickerEntry {
	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()

	fctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	entries, err := s.fetcher.FetchTickers(fctx)
	s.metrics.FetchDur.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		s.lastErr = err
		stale := s.snapshot
		s.mu.Unlock()
		s.metrics.FetchesTotal.WithLabelValues("error").Inc()
		s.log.Warnf("ticker fetch failed, keeping %d cached entries: %v", len(stale), err)
		return stale
	}
	s.snapshot = entries
	s.fetchedAt = time.Now().UTC()
	s.lastErr = nil
	listeners := append([]SnapshotListener(nil), s.listeners...)
	s.mu.Unlock()

	s.metrics.FetchesTotal.WithLabelValues("ok").Inc()
	s.metrics.SnapshotSize.Set(float64(len(entries)))
	s.log.Infof("ticker snapshot refreshed: %d entries", len(entries))

	for _, fn := range listeners {
		fn(ctx, entries)
	}
	return entries
}

// Start launches the refresh loop: one fetch right away, then one per
// interval tick or Refresh call. It returns immediately.
func (s *TickerSource) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.trigger(ctx, ticker)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("ticker refresher stopping")
				return
			case <-ticker.C:
				s.trigger(ctx, ticker)
			case <-s.manual:
				s.trigger(ctx, ticker)
			}
		}
	}()
}

// Refresh asks the loop started by Start for an immediate fetch. It reports
// false when a fetch is already running or queued.
func (s *TickerSource) Refresh() bool {
	if s.busy.Load() {
		s.metrics.RefreshesTotal.WithLabelValues("in_flight").Inc()
		return false
	}
	select {
	case s.manual <- struct{}{}:
		s.metrics.RefreshesTotal.WithLabelValues("scheduled").Inc()
		return true
	default:
		s.metrics.RefreshesTotal.WithLabelValues("in_flight").Inc()
		return false
	}
}

// trigger runs one fetch unless another is running. Ticks and manual
// requests that arrived during the fetch are folded into it.
func (s *TickerSource) trigger(ctx context.Context, ticker *time.Ticker) bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	defer s.busy.Store(false)

	s.FetchSnapshot(ctx)
	select {
	case <-s.manual:
	default:
	}
	select {
	case <-ticker.C:
	default:
	}
	return true
}

func (s *TickerSource) Snapshot() []models.TickerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Lookup finds symbol in the current snapshot, ignoring case.
func (s *TickerSource) Lookup(symbol string) (models.TickerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.snapshot {
		if strings.EqualFold(e.Symbol, symbol) {
			return e, true
		}
	}
	return models.TickerEntry{}, false
}

func (s *TickerSource) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		IsLoading:    s.inFlight && s.fetchedAt.IsZero(),
		IsRefetching: s.inFlight && !s.fetchedAt.IsZero(),
		Size:         len(s.snapshot),
	}
	if !s.fetchedAt.IsZero() {
		at := s.fetchedAt
		st.FetchedAt = &at
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
