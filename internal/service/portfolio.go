package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"coinfolio/internal/database"
	"coinfolio/internal/metrics"
	"coinfolio/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoSnapshot    = errors.New("no ticker snapshot has been reconciled yet")
	ErrHoldingExists = errors.New("symbol is already in the portfolio")
)

const subscriberBuffer = 8

// Store holds the portfolio and persists it under a single key.
//
// Nothing is written before the first snapshot has been applied: until then
// the in-memory portfolio is empty and writing it would erase the saved one.
type Store struct {
	kv      database.KV
	key     string
	log     *logrus.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	holdings []models.Holding
	synced   bool

	subMu  sync.Mutex
	subs   map[int]chan []models.Holding
	nextID int
}

func NewStore(kv database.KV, key string, log *logrus.Logger, m *metrics.Metrics) *Store {
	return &Store{
		kv:       kv,
		key:      key,
		log:      log,
		metrics:  m,
		holdings: []models.Holding{},
		subs:     make(map[int]chan []models.Holding),
	}
}

// Load reads the persisted portfolio. A missing key, a storage error or
// unparseable data all yield an empty portfolio.
func (s *Store) Load(ctx context.Context) []models.Holding {
	hs, err := s.load(ctx)
	if err != nil {
		s.log.Warnf("load portfolio: %v", err)
		return []models.Holding{}
	}
	return hs
}

// load is Load with storage errors passed through. A missing key or
// unparseable data is not an error.
func (s *Store) load(ctx context.Context) ([]models.Holding, error) {
	b, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, database.ErrNotFound) {
		return []models.Holding{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []models.Holding
	if err := json.Unmarshal(b, &raw); err != nil {
		s.log.Warnf("saved portfolio is unreadable, starting empty: %v", err)
		return []models.Holding{}, nil
	}

	// keep the first entry per symbol so one bad write cannot break uniqueness
	seen := make(map[string]bool, len(raw))
	hs := make([]models.Holding, 0, len(raw))
	for _, h := range raw {
		if h.Symbol == "" || seen[h.Symbol] {
			continue
		}
		seen[h.Symbol] = true
		if !h.Unit.InRange() {
			h.Unit = models.ClampUnit(h.Unit.Decimal())
		}
		hs = append(hs, h)
	}
	return hs, nil
}

// Save writes holdings as the whole portfolio. It is a no-op until a
// snapshot has been applied.
func (s *Store) Save(ctx context.Context, holdings []models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, holdings)
}

func (s *Store) saveLocked(ctx context.Context, holdings []models.Holding) error {
	if !s.synced {
		s.metrics.SavesTotal.WithLabelValues("skipped").Inc()
		s.log.Debug("portfolio save skipped: no snapshot yet")
		return nil
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	b, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("encode portfolio: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, b); err != nil {
		s.metrics.SavesTotal.WithLabelValues("error").Inc()
		s.log.Errorf("save portfolio failed: %v", err)
		return fmt.Errorf("save portfolio: %w", err)
	}
	s.metrics.SavesTotal.WithLabelValues("ok").Inc()
	return nil
}

// ApplySnapshot reconciles the portfolio against snapshot, replaces the
// in-memory portfolio with the result and saves it. Empty snapshots are
// ignored.
//
// The first snapshot is reconciled against the saved portfolio; if that read
// fails the snapshot is dropped and the store stays unsynced. Later snapshots
// reconcile against the in-memory portfolio.
func (s *Store) ApplySnapshot(ctx context.Context, snapshot []models.TickerEntry) error {
	if len(snapshot) == 0 {
		s.log.Warn("ignoring empty ticker snapshot")
		return nil
	}

	s.mu.Lock()
	base := s.holdings
	if !s.synced {
		saved, err := s.load(ctx)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("load portfolio: %w", err)
		}
		base = saved
	}
	hs := Reconcile(snapshot, base)
	s.holdings = hs
	s.synced = true
	err := s.saveLocked(ctx, hs)
	out := s.cloneLocked()
	s.mu.Unlock()

	s.log.Infof("portfolio reconciled: %d holdings", len(out))
	s.publish(out)
	return err
}

// Listener adapts ApplySnapshot to TickerSource.OnSnapshot.
func (s *Store) Listener() SnapshotListener {
	return func(ctx context.Context, snapshot []models.TickerEntry) {
		if err := s.ApplySnapshot(ctx, snapshot); err != nil {
			s.log.Warnf("apply snapshot: %v", err)
		}
	}
}

// Add appends a holding for item. It fails with ErrHoldingExists when the
// symbol is already held; use Put to add-or-update.
func (s *Store) Add(ctx context.Context, item models.TickerEntry, unit models.Unit) ([]models.Holding, error) {
	s.mu.Lock()
	if !s.synced {
		s.mu.Unlock()
		return nil, ErrNoSnapshot
	}
	if s.indexLocked(item.Symbol) >= 0 {
		out := s.cloneLocked()
		s.mu.Unlock()
		return out, fmt.Errorf("add %s: %w", item.Symbol, ErrHoldingExists)
	}
	s.holdings = append(s.holdings, models.Holding{TickerEntry: item, Unit: models.ClampUnit(unit.Decimal())})
	err := s.saveLocked(ctx, s.holdings)
	out := s.cloneLocked()
	s.mu.Unlock()

	s.publish(out)
	return out, err
}

// Update sets the unit of the holding for symbol. The bool reports whether
// the symbol was held.
func (s *Store) Update(ctx context.Context, symbol string, unit models.Unit) ([]models.Holding, bool, error) {
	s.mu.Lock()
	i := s.indexLocked(symbol)
	if i >= 0 {
		s.holdings[i].Unit = models.ClampUnit(unit.Decimal())
	}
	err := s.saveLocked(ctx, s.holdings)
	out := s.cloneLocked()
	s.mu.Unlock()

	if i >= 0 {
		s.publish(out)
	}
	return out, i >= 0, err
}

// Remove drops the holding for symbol. The bool reports whether it was held.
func (s *Store) Remove(ctx context.Context, symbol string) ([]models.Holding, bool, error) {
	s.mu.Lock()
	i := s.indexLocked(symbol)
	if i >= 0 {
		s.holdings = append(s.holdings[:i:i], s.holdings[i+1:]...)
	}
	err := s.saveLocked(ctx, s.holdings)
	out := s.cloneLocked()
	s.mu.Unlock()

	if i >= 0 {
		s.publish(out)
	}
	return out, i >= 0, err
}

// Put adds item, or updates its unit when the symbol is already held. The
// bool reports whether a new holding was added.
func (s *Store) Put(ctx context.Context, item models.TickerEntry, unit models.Unit) ([]models.Holding, bool, error) {
	if s.Has(item.Symbol) {
		out, _, err := s.Update(ctx, item.Symbol, unit)
		return out, false, err
	}
	out, err := s.Add(ctx, item, unit)
	if errors.Is(err, ErrHoldingExists) {
		// lost a race with another add of the same symbol
		out, _, err = s.Update(ctx, item.Symbol, unit)
		return out, false, err
	}
	if errors.Is(err, ErrNoSnapshot) {
		return nil, false, err
	}
	return out, true, err
}

// Holdings returns a copy of the current portfolio.
func (s *Store) Holdings() []models.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneLocked()
}

// Has reports whether symbol is held.
func (s *Store) Has(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(symbol) >= 0
}

// Unit returns the held unit for symbol.
func (s *Store) Unit(symbol string) (models.Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(symbol); i >= 0 {
		return s.holdings[i].Unit, true
	}
	return models.Unit{}, false
}

// Synced reports whether a snapshot has been applied.
func (s *Store) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// Subscribe returns a channel that receives a copy of the portfolio after
// every change. Slow readers miss intermediate states. Call the returned
// func to unsubscribe; it closes the channel.
func (s *Store) Subscribe() (<-chan []models.Holding, func()) {
	ch := make(chan []models.Holding, subscriberBuffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(holdings []models.Holding) {
	s.metrics.Holdings.Set(float64(len(holdings)))

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- holdings:
		default:
		}
	}
}

func (s *Store) indexLocked(symbol string) int {
	for i, h := range s.holdings {
		if h.Symbol == symbol {
			return i
		}
	}
	return -1
}

func (s *Store) cloneLocked() []models.Holding {
	return append([]models.Holding{}, s.holdings...)
}
