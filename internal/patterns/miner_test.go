package patterns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

func TestMinerMinesHotspots(t *testing.T) {
	stored := 0
	miner := NewMiner(nil, StoreFunc(func(ctx context.Context, hotspots []models.Hotspot) error {
		stored += len(hotspots)
		return nil
	}))

	now := time.Now()
	runs := []models.RunSnapshot{
		{RunID: "r1", StartedAt: now, RootCauses: []string{"Service3", "Service7"}},
		{RunID: "r2", StartedAt: now.Add(time.Minute), RootCauses: []string{"Service3", "Service3"}},
		{RunID: "r3", StartedAt: now.Add(2 * time.Minute)},
		{RunID: "r4", StartedAt: now.Add(3 * time.Minute), RootCauses: []string{"Service3"}},
	}

	hotspots, err := miner.Mine(context.Background(), runs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hotspots) != 2 {
		t.Fatalf("expected 2 hotspots, got %d", len(hotspots))
	}
	top := hotspots[0]
	if top.Node != "Service3" || top.Count != 3 || top.Prevalence != 0.75 {
		t.Fatalf("unexpected top hotspot: %+v", top)
	}
	if !top.LastSeen.Equal(now.Add(3 * time.Minute)) {
		t.Fatalf("unexpected last seen: %v", top.LastSeen)
	}
	if stored != 0 {
		t.Fatalf("Mine must not write to the store, got %d writes", stored)
	}

	if err := miner.Persist(context.Background(), runs); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if stored != 2 {
		t.Fatalf("expected 2 hotspots stored, got %d", stored)
	}
}

func TestMinerPersistSurfacesStoreError(t *testing.T) {
	miner := NewMiner(nil, StoreFunc(func(ctx context.Context, hotspots []models.Hotspot) error {
		return errors.New("sink down")
	}))
	runs := []models.RunSnapshot{{RunID: "r1", StartedAt: time.Now(), RootCauses: []string{"Service1"}}}
	if err := miner.Persist(context.Background(), runs); err == nil {
		t.Fatalf("expected store error")
	}
	if err := NewMiner(nil, nil).Persist(context.Background(), runs); err != nil {
		t.Fatalf("nil store should be a no-op, got %v", err)
	}
}

func TestMinerNoRuns(t *testing.T) {
	hotspots, err := NewMiner(nil, nil).Mine(context.Background(), nil)
	if err != nil || hotspots != nil {
		t.Fatalf("expected nil result, got %v %v", hotspots, err)
	}
}
