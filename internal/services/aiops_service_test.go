package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-aiops/internal/anomaly"
	"github.com/miradorstack/mirador-aiops/internal/cache"
	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/patterns"
	"github.com/miradorstack/mirador-aiops/internal/state"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

func newTestService() (*AIOpsService, *state.Store) {
	store := state.NewStore(nil, cache.NewMemoryProvider(), 0, 10)
	pipeline := engine.NewPipeline(nil, nil, nil, store, anomaly.DefaultConfig(), engine.DefaultSimulation())
	return NewAIOpsService(nil, pipeline, store, nil), store
}

func TestGraphDataBeforeAnyRun(t *testing.T) {
	service, _ := newTestService()
	data, err := service.GraphData(context.Background())
	if err != nil {
		t.Fatalf("graph data: %v", err)
	}
	if data.Nodes == nil || data.Edges == nil || len(data.Nodes) != 0 {
		t.Fatalf("expected empty non-nil graph, got %+v", data)
	}
}

func TestRunPublishesGraph(t *testing.T) {
	service, store := newTestService()
	snap, err := service.Run(context.Background(), engine.RunOptions{Seed: 21})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.History()) != 1 {
		t.Fatalf("expected one snapshot in history")
	}

	data, err := service.GraphData(context.Background())
	if err != nil {
		t.Fatalf("graph data: %v", err)
	}
	if len(data.Nodes) != snap.Telemetry.TotalNodes || len(data.Edges) != snap.Telemetry.TotalEdges {
		t.Fatalf("graph does not match telemetry: %d/%d nodes, %d/%d edges",
			len(data.Nodes), snap.Telemetry.TotalNodes, len(data.Edges), snap.Telemetry.TotalEdges)
	}

	svg, err := service.GraphSVG(context.Background())
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if strings.Count(string(svg), "<circle") != snap.Telemetry.TotalNodes {
		t.Fatalf("svg node count mismatch")
	}
}

func TestHotspotsAcrossRuns(t *testing.T) {
	service, _ := newTestService()
	hotspots, err := service.Hotspots(context.Background())
	if err != nil || hotspots == nil || len(hotspots) != 0 {
		t.Fatalf("expected empty hotspots, got %v %v", hotspots, err)
	}

	flagged := 0
	for seed := int64(1); seed <= 5; seed++ {
		snap, err := service.Run(context.Background(), engine.RunOptions{Seed: seed})
		if err != nil {
			t.Fatalf("run %d: %v", seed, err)
		}
		flagged += len(snap.RootCauses)
	}
	hotspots, err = service.Hotspots(context.Background())
	if err != nil {
		t.Fatalf("hotspots: %v", err)
	}
	total := 0
	for _, h := range hotspots {
		total += h.Count
		if h.Prevalence <= 0 || h.Prevalence > 1 {
			t.Fatalf("prevalence out of range: %+v", h)
		}
	}
	if total != flagged {
		t.Fatalf("hotspot counts %d != flagged roots %d", total, flagged)
	}
}

func TestHotspotsPersistedOnRunNotOnRead(t *testing.T) {
	store := state.NewStore(nil, cache.NewMemoryProvider(), 0, 10)
	pipeline := engine.NewPipeline(nil, nil, nil, store, anomaly.DefaultConfig(), engine.DefaultSimulation())
	writes := 0
	miner := patterns.NewMiner(nil, patterns.StoreFunc(func(ctx context.Context, hotspots []models.Hotspot) error {
		writes++
		return nil
	}))
	service := NewAIOpsService(nil, pipeline, store, miner)

	ran := 0
	for seed := int64(1); seed <= 5; seed++ {
		snap, err := service.Run(context.Background(), engine.RunOptions{Seed: seed})
		if err != nil {
			t.Fatalf("run %d: %v", seed, err)
		}
		if len(snap.RootCauses) > 0 || ran > 0 {
			ran++
		}
	}
	if writes != ran {
		t.Fatalf("expected %d persisted hotspot sets, got %d", ran, writes)
	}

	before := writes
	for i := 0; i < 3; i++ {
		if _, err := service.Hotspots(context.Background()); err != nil {
			t.Fatalf("hotspots: %v", err)
		}
	}
	if writes != before {
		t.Fatalf("reading hotspots wrote to the store")
	}
}

func TestLatencyTrackedPerOperation(t *testing.T) {
	service, _ := newTestService()
	if _, err := service.Run(context.Background(), engine.RunOptions{Seed: 2}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if service.latencies.Count(utils.LatencyRun) != 1 || service.latencies.Count(utils.LatencyDetect) != 0 {
		t.Fatalf("run latency misfiled")
	}
	if _, err := service.Dashboard(context.Background(), engine.DashboardOptions{Seed: 2, Events: 20}); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if service.latencies.Count(utils.LatencyDetect) != 1 {
		t.Fatalf("detect latency not recorded")
	}
}

func TestDetectInvalidInput(t *testing.T) {
	service, _ := newTestService()
	_, err := service.Detect(context.Background(), []models.EventRecord{{SourceNode: "a", Severity: 1, Timestamp: "yesterday"}})
	if !errors.Is(err, anomaly.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	service, _ := newTestService()
	report, err := service.Dashboard(context.Background(), engine.DashboardOptions{Seed: 4, Events: 30})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if report.Summary.TotalEvents != 30 {
		t.Fatalf("unexpected total %d", report.Summary.TotalEvents)
	}
}

func TestRunWithoutPipeline(t *testing.T) {
	service := NewAIOpsService(nil, nil, nil, nil)
	if _, err := service.Run(context.Background(), engine.RunOptions{}); err == nil {
		t.Fatalf("expected error without pipeline")
	}
}
