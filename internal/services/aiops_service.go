package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/export"
	"github.com/miradorstack/mirador-aiops/internal/metrics"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/patterns"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// RunStore exposes the published run snapshots.
type RunStore interface {
	Latest(ctx context.Context) (models.RunSnapshot, bool, error)
	History() []models.RunSnapshot
}

// AIOpsService is the transport-neutral facade used by the HTTP and gRPC shells.
type AIOpsService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	store     RunStore
	miner     *patterns.Miner
	latencies *utils.LatencyTracker
}

// NewAIOpsService constructs the service facade. miner may be nil.
func NewAIOpsService(logger *slog.Logger, pipeline *engine.Pipeline, store RunStore, miner *patterns.Miner) *AIOpsService {
	if logger == nil {
		logger = slog.Default()
	}
	if miner == nil {
		miner = patterns.NewMiner(logger, nil)
	}
	return &AIOpsService{
		logger:    logger,
		pipeline:  pipeline,
		store:     store,
		miner:     miner,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Run executes one simulate-correlate-export cycle.
func (s *AIOpsService) Run(ctx context.Context, opts engine.RunOptions) (models.RunSnapshot, error) {
	if s.pipeline == nil {
		return models.RunSnapshot{}, fmt.Errorf("pipeline not configured")
	}
	s.logger.Debug("Run called", slog.Int64("seed", opts.Seed), slog.Int("events", opts.Events))

	start := time.Now()
	snap, err := s.pipeline.Run(ctx, opts)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveRun(duration, metrics.OutcomeError, 0)
		s.logger.Error("correlation run failed", slog.Any("error", err))
		return models.RunSnapshot{}, err
	}
	metrics.ObserveRun(duration, metrics.OutcomeSuccess, len(snap.RootCauses))
	s.observe(utils.LatencyRun, duration)
	s.persistHotspots(ctx)
	return snap, nil
}

// Latest returns the most recent snapshot, if any run has completed.
func (s *AIOpsService) Latest(ctx context.Context) (models.RunSnapshot, bool, error) {
	if s.store == nil {
		return models.RunSnapshot{}, false, nil
	}
	return s.store.Latest(ctx)
}

// GraphData returns the graph of the most recent run, or an empty graph.
func (s *AIOpsService) GraphData(ctx context.Context) (models.GraphData, error) {
	snap, ok, err := s.Latest(ctx)
	if err != nil {
		return models.GraphData{}, err
	}
	if !ok {
		return models.EmptyGraphData(), nil
	}
	return snap.Graph, nil
}

// GraphSVG renders the graph of the most recent run.
func (s *AIOpsService) GraphSVG(ctx context.Context) ([]byte, error) {
	data, err := s.GraphData(ctx)
	if err != nil {
		return nil, err
	}
	return export.GraphDataSVG(data)
}

// Detect labels caller-supplied event records.
func (s *AIOpsService) Detect(ctx context.Context, records []models.EventRecord) (models.DashboardReport, error) {
	if s.pipeline == nil {
		return models.DashboardReport{}, fmt.Errorf("pipeline not configured")
	}
	start := time.Now()
	report, err := s.pipeline.Report(ctx, records)
	if err != nil {
		s.logger.Warn("detection failed", slog.Int("records", len(records)), slog.Any("error", err))
		return models.DashboardReport{}, err
	}
	s.observe(utils.LatencyDetect, time.Since(start))
	metrics.ObserveDetections(report.Summary.TotalEvents, report.Summary.Anomalies)
	return report, nil
}

// Dashboard simulates a dashboard batch and labels it.
func (s *AIOpsService) Dashboard(ctx context.Context, opts engine.DashboardOptions) (models.DashboardReport, error) {
	if s.pipeline == nil {
		return models.DashboardReport{}, fmt.Errorf("pipeline not configured")
	}
	start := time.Now()
	report, err := s.pipeline.Analyze(ctx, opts)
	if err != nil {
		s.logger.Error("dashboard analysis failed", slog.Any("error", err))
		return models.DashboardReport{}, err
	}
	s.observe(utils.LatencyDetect, time.Since(start))
	metrics.ObserveDetections(report.Summary.TotalEvents, report.Summary.Anomalies)
	return report, nil
}

// Hotspots mines the retained run history for recurring root causes. It has
// no side effects; persistence happens after each run.
func (s *AIOpsService) Hotspots(ctx context.Context) ([]models.Hotspot, error) {
	if s.store == nil {
		return []models.Hotspot{}, nil
	}
	hotspots, err := s.miner.Mine(ctx, s.store.History())
	if err != nil {
		return nil, err
	}
	if hotspots == nil {
		hotspots = []models.Hotspot{}
	}
	return hotspots, nil
}

// LatencyP95 returns the current p95 latency for label (utils.LatencyRun or
// utils.LatencyDetect).
func (s *AIOpsService) LatencyP95(label string) time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(label, 95)
}

func (s *AIOpsService) observe(label string, d time.Duration) {
	s.latencies.Observe(label, d)
	if count := s.latencies.Count(label); count >= 20 && count%20 == 0 {
		s.logger.Info("latency",
			slog.String("op", label),
			slog.Duration("p95", s.latencies.Percentile(label, 95)),
			slog.Int("samples", count),
		)
	}
}

func (s *AIOpsService) persistHotspots(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.miner.Persist(ctx, s.store.History()); err != nil {
		s.logger.Warn("hotspot persist failed", slog.Any("error", err))
	}
}
