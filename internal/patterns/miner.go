package patterns

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Store abstracts persistence for mined hotspots.
type Store interface {
	StoreHotspots(ctx context.Context, hotspots []models.Hotspot) error
}

// Miner aggregates root-cause frequency across recent runs.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; with a nil store Persist does nothing.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine counts how often each node was flagged and returns hotspots ordered by
// prevalence, the fraction of runs in which the node was a root cause.
func (m *Miner) Mine(ctx context.Context, runs []models.RunSnapshot) ([]models.Hotspot, error) {
	if len(runs) == 0 {
		return nil, nil
	}

	stats := make(map[string]*nodeAggregate)
	for _, run := range runs {
		seen := make(map[string]struct{}, len(run.RootCauses))
		for _, node := range run.RootCauses {
			if _, dup := seen[node]; dup {
				continue
			}
			seen[node] = struct{}{}
			agg := ensureAggregate(stats, node)
			agg.count++
			if run.StartedAt.After(agg.lastSeen) {
				agg.lastSeen = run.StartedAt
			}
		}
	}

	hotspots := make([]models.Hotspot, 0, len(stats))
	for node, agg := range stats {
		hotspots = append(hotspots, models.Hotspot{
			Node:       node,
			Count:      agg.count,
			Prevalence: float64(agg.count) / float64(len(runs)),
			LastSeen:   agg.lastSeen,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Count != hotspots[j].Count {
			return hotspots[i].Count > hotspots[j].Count
		}
		return hotspots[i].Node < hotspots[j].Node
	})

	return hotspots, nil
}

// Persist mines runs and hands the result to the store. It is called when a
// run is published so reads through Mine stay free of side effects.
func (m *Miner) Persist(ctx context.Context, runs []models.RunSnapshot) error {
	if m.store == nil {
		return nil
	}
	hotspots, err := m.Mine(ctx, runs)
	if err != nil || len(hotspots) == 0 {
		return err
	}
	if err := m.store.StoreHotspots(ctx, hotspots); err != nil {
		return err
	}
	m.logger.Debug("hotspots persisted", slog.Int("hotspots", len(hotspots)), slog.Int("runs", len(runs)))
	return nil
}

type nodeAggregate struct {
	count    int
	lastSeen time.Time
}

func ensureAggregate(m map[string]*nodeAggregate, node string) *nodeAggregate {
	if node == "" {
		node = "unknown"
	}
	agg, ok := m[node]
	if !ok {
		agg = &nodeAggregate{}
		m[node] = agg
	}
	return agg
}
