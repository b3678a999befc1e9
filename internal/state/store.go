package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/miradorstack/mirador-aiops/internal/cache"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

var latestKey = cache.Key("run", "latest")

// Store keeps the most recent run snapshot and a bounded history. It is the
// only state shared between requests; each run builds its own graph and
// publishes the finished snapshot here.
type Store struct {
	mu       sync.RWMutex
	latest   *models.RunSnapshot
	history  []models.RunSnapshot
	limit    int
	cache    cache.Provider
	cacheTTL time.Duration
	logger   *slog.Logger

	subMu  sync.Mutex
	subs   map[int]chan models.RunSnapshot
	nextID int
}

// NewStore creates a Store retaining up to historyLimit snapshots. The cache
// provider mirrors the latest snapshot so peers and restarts can read it.
func NewStore(logger *slog.Logger, provider cache.Provider, cacheTTL time.Duration, historyLimit int) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Store{
		limit:    historyLimit,
		cache:    provider,
		cacheTTL: cacheTTL,
		logger:   logger,
		subs:     make(map[int]chan models.RunSnapshot),
	}
}

// Publish records snap as the latest run and notifies subscribers.
func (s *Store) Publish(ctx context.Context, snap models.RunSnapshot) {
	s.mu.Lock()
	latest := snap
	s.latest = &latest
	s.history = append(s.history, snap)
	if len(s.history) > s.limit {
		// Drop oldest snapshot to bound memory.
		copy(s.history[0:], s.history[1:])
		s.history = s.history[:s.limit]
	}
	s.mu.Unlock()

	if err := s.mirror(ctx, snap); err != nil {
		s.logger.Warn("snapshot cache mirror failed", slog.String("run_id", snap.RunID), slog.Any("error", err))
	}
	s.broadcast(snap)
}

// Latest returns the most recent snapshot. When this process has not run
// yet it falls back to the cache mirror.
func (s *Store) Latest(ctx context.Context) (models.RunSnapshot, bool, error) {
	s.mu.RLock()
	if s.latest != nil {
		snap := *s.latest
		s.mu.RUnlock()
		return snap, true, nil
	}
	s.mu.RUnlock()

	payload, err := s.cache.Get(ctx, latestKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.RunSnapshot{}, false, nil
	}
	if err != nil {
		return models.RunSnapshot{}, false, utils.NewAppError(utils.OpReadSnapshot, "cache get", err)
	}
	snap, err := decodeSnapshot(payload)
	if err != nil {
		return models.RunSnapshot{}, false, utils.NewAppError(utils.OpReadSnapshot, "", err)
	}
	return snap, true, nil
}

// History returns retained snapshots, oldest first.
func (s *Store) History() []models.RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RunSnapshot(nil), s.history...)
}

// Subscribe returns a channel receiving every future snapshot and a cancel
// func. Slow subscribers miss snapshots rather than blocking Publish.
func (s *Store) Subscribe(buffer int) (<-chan models.RunSnapshot, func()) {
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan models.RunSnapshot, buffer)
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
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) broadcast(snap models.RunSnapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			s.logger.Debug("dropping snapshot for slow subscriber", slog.Int("subscriber", id))
		}
	}
}

func (s *Store) mirror(ctx context.Context, snap models.RunSnapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, latestKey, payload, s.cacheTTL)
}

func encodeSnapshot(snap models.RunSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

func decodeSnapshot(payload []byte) (models.RunSnapshot, error) {
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return models.RunSnapshot{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap models.RunSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.RunSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
