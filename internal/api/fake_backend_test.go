package api

import (
	"context"
	"sync"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	runOpts   []engine.RunOptions
	snap      models.RunSnapshot
	graph     models.GraphData
	report    models.DashboardReport
	dashOpts  engine.DashboardOptions
	hotspots  []models.Hotspot
	records   []models.EventRecord
	err       error
	detectErr error
}

func (f *fakeBackend) Run(ctx context.Context, opts engine.RunOptions) (models.RunSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runOpts = append(f.runOpts, opts)
	return f.snap, f.err
}

func (f *fakeBackend) GraphData(ctx context.Context) (models.GraphData, error) {
	return f.graph, f.err
}

func (f *fakeBackend) GraphSVG(ctx context.Context) ([]byte, error) {
	return []byte("<svg></svg>"), f.err
}

func (f *fakeBackend) Detect(ctx context.Context, records []models.EventRecord) (models.DashboardReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	return f.report, f.detectErr
}

func (f *fakeBackend) Dashboard(ctx context.Context, opts engine.DashboardOptions) (models.DashboardReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashOpts = opts
	return f.report, f.err
}

func (f *fakeBackend) Hotspots(ctx context.Context) ([]models.Hotspot, error) {
	return f.hotspots, f.err
}

func sampleSnapshot() models.RunSnapshot {
	return models.RunSnapshot{
		RunID:      "20240301T120000-000001",
		RootCauses: []string{"Service3"},
		Telemetry: models.Telemetry{
			Algorithm:       engine.AlgorithmName,
			TimeTakenSec:    0.0004,
			TotalNodes:      15,
			TotalEdges:      22,
			CorrelatedNodes: 1,
		},
	}
}
