package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/anomaly"
	"github.com/miradorstack/mirador-aiops/internal/export"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/simulate"
	"github.com/miradorstack/mirador-aiops/internal/topology"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

var (
	// ErrTooManyEvents is returned when a request asks for more events than the configured limit.
	ErrTooManyEvents = errors.New("too many events requested")
	// ErrTopologyTooLarge is returned when a request asks for more nodes or edge draws than allowed.
	ErrTopologyTooLarge = errors.New("topology too large")
)

// Publisher receives finished run snapshots.
type Publisher interface {
	Publish(ctx context.Context, snap models.RunSnapshot)
}

// Defaults bounds each simulation when a request leaves a field unset.
type Defaults struct {
	Nodes           int
	EdgeDraws       int
	Events          int
	Tools           []string
	DashboardEvents int
	MaxEvents       int
	MaxNodes        int
	MaxEdgeDraws    int
}

// DefaultSimulation matches the reference demo: 15 nodes, 25 edge draws, 200 events.
func DefaultSimulation() Defaults {
	return Defaults{
		Nodes:           topology.DefaultNodeCount,
		EdgeDraws:       topology.DefaultEdgeDraws,
		Events:          200,
		Tools:           simulate.DefaultTools,
		DashboardEvents: 50,
		MaxEvents:       5000,
		MaxNodes:        500,
		MaxEdgeDraws:    10000,
	}
}

// RunOptions overrides Defaults for one run. Seed zero means unseeded.
type RunOptions struct {
	Seed      int64
	Nodes     int
	EdgeDraws int
	Events    int
	Tools     []string
}

// DashboardOptions controls one dashboard analysis pass.
type DashboardOptions struct {
	Seed   int64
	Events int
}

// Pipeline orchestrates simulate -> correlate -> export and the dashboard detection pass.
type Pipeline struct {
	logger    *slog.Logger
	sink      export.Sink
	rules     *RuleEngine
	publisher Publisher
	detector  anomaly.Config
	defaults  Defaults
	now       func() time.Time
}

// NewPipeline constructs a pipeline. sink, rules and publisher are optional.
func NewPipeline(
	logger *slog.Logger,
	sink export.Sink,
	rules *RuleEngine,
	publisher Publisher,
	detector anomaly.Config,
	defaults Defaults,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSimulation()
	if defaults.Nodes <= 0 {
		defaults.Nodes = def.Nodes
	}
	if defaults.EdgeDraws < 0 {
		defaults.EdgeDraws = def.EdgeDraws
	}
	if defaults.Events <= 0 {
		defaults.Events = def.Events
	}
	if len(defaults.Tools) == 0 {
		defaults.Tools = def.Tools
	}
	if defaults.DashboardEvents <= 0 {
		defaults.DashboardEvents = def.DashboardEvents
	}
	if defaults.MaxEvents <= 0 {
		defaults.MaxEvents = def.MaxEvents
	}
	if defaults.MaxNodes <= 0 {
		defaults.MaxNodes = def.MaxNodes
	}
	if defaults.MaxEdgeDraws <= 0 {
		defaults.MaxEdgeDraws = def.MaxEdgeDraws
	}
	return &Pipeline{
		logger:    logger,
		sink:      sink,
		rules:     rules,
		publisher: publisher,
		detector:  detector,
		defaults:  defaults,
		now:       time.Now,
	}
}

// Run executes one full correlation cycle. Every run owns its graph; only the
// resulting snapshot is published.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (models.RunSnapshot, error) {
	opts = p.resolve(opts)
	if err := p.checkLimits(opts); err != nil {
		return models.RunSnapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.RunSnapshot{}, err
	}
	rng := simulate.NewRand(opts.Seed)
	started := p.now().UTC()

	graph, nodes := topology.BuildInfra(rng, opts.Nodes, opts.EdgeDraws)
	if err := ctx.Err(); err != nil {
		return models.RunSnapshot{}, err
	}
	generator, err := simulate.NewGenerator(nodes, opts.Tools, rng, simulate.WithClock(p.now))
	if err != nil {
		return models.RunSnapshot{}, fmt.Errorf("build generator: %w", err)
	}
	correlator := NewCorrelator(p.logger, graph)
	if err := correlator.AttachEvents(generator.GenerateBatch(opts.Events)); err != nil {
		return models.RunSnapshot{}, err
	}
	roots, telemetry := correlator.FindRootCauses()
	if err := ctx.Err(); err != nil {
		return models.RunSnapshot{}, err
	}

	snap := models.RunSnapshot{
		RunID:      export.RunID(started, fmt.Sprintf("%06d", rng.Intn(1_000_000))),
		StartedAt:  started,
		RootCauses: roots,
		Telemetry:  telemetry,
		Graph:      correlator.GraphData(),
	}

	alerts := correlator.Alerts()
	snap.Recommendations = p.rules.RecommendAll(roots, alerts)

	artifacts, err := p.exportRun(ctx, snap, graph.NodeIDs(), alerts)
	if err != nil {
		return models.RunSnapshot{}, err
	}
	snap.Artifacts = artifacts

	if p.publisher != nil {
		p.publisher.Publish(ctx, snap)
	}
	p.logger.Info("run completed",
		slog.String("run_id", snap.RunID),
		slog.Int("events", opts.Events),
		slog.Int("root_causes", len(roots)),
		slog.Int("artifacts", len(artifacts)),
	)
	return snap, nil
}

// Analyze runs the dashboard pass: synthetic scored events, isolation forest
// labelling, and a chain graph over the sources in first-seen order.
func (p *Pipeline) Analyze(ctx context.Context, opts DashboardOptions) (models.DashboardReport, error) {
	if opts.Events <= 0 {
		opts.Events = p.defaults.DashboardEvents
	}
	if opts.Events > p.defaults.MaxEvents {
		return models.DashboardReport{}, fmt.Errorf("events %d exceeds limit %d: %w", opts.Events, p.defaults.MaxEvents, ErrTooManyEvents)
	}
	records := simulate.DashboardEvents(simulate.NewRand(opts.Seed), opts.Events, p.now())
	return p.Report(ctx, records)
}

// Report labels caller-supplied records and assembles the dashboard view.
func (p *Pipeline) Report(ctx context.Context, records []models.EventRecord) (models.DashboardReport, error) {
	if err := ctx.Err(); err != nil {
		return models.DashboardReport{}, err
	}
	detections, err := anomaly.NewDetector(p.detector, p.logger).Detect(records)
	if err != nil {
		return models.DashboardReport{}, utils.NewAppError(utils.OpDetect, "", err)
	}

	sources := make([]string, 0, len(detections))
	explanations := make([]string, 0, len(detections))
	for _, d := range detections {
		sources = append(sources, d.SourceNode)
		explanations = append(explanations, Explain(d))
	}
	chain := topology.BuildChain(sources)
	correlator := NewCorrelator(p.logger, chain)

	report := models.DashboardReport{
		Summary:      Summarize(detections),
		Detections:   detections,
		Graph:        correlator.GraphData(),
		Explanations: explanations,
	}
	markAnomalous(report.Graph.Nodes, report.Summary.RootCauses)
	p.logger.Debug("dashboard analysis completed",
		slog.Int("events", report.Summary.TotalEvents),
		slog.Int("anomalies", report.Summary.Anomalies),
	)
	return report, nil
}

func markAnomalous(nodes []models.GraphNode, sources []string) {
	flagged := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		flagged[s] = struct{}{}
	}
	for i := range nodes {
		_, nodes[i].Anomalous = flagged[nodes[i].ID]
	}
}

func (p *Pipeline) checkLimits(opts RunOptions) error {
	switch {
	case opts.Events > p.defaults.MaxEvents:
		return fmt.Errorf("events %d exceeds limit %d: %w", opts.Events, p.defaults.MaxEvents, ErrTooManyEvents)
	case opts.Nodes > p.defaults.MaxNodes:
		return fmt.Errorf("nodes %d exceeds limit %d: %w", opts.Nodes, p.defaults.MaxNodes, ErrTopologyTooLarge)
	case opts.EdgeDraws > p.defaults.MaxEdgeDraws:
		return fmt.Errorf("edge draws %d exceeds limit %d: %w", opts.EdgeDraws, p.defaults.MaxEdgeDraws, ErrTopologyTooLarge)
	}
	return nil
}

func (p *Pipeline) resolve(opts RunOptions) RunOptions {
	if opts.Nodes <= 0 {
		opts.Nodes = p.defaults.Nodes
	}
	if opts.EdgeDraws <= 0 {
		opts.EdgeDraws = p.defaults.EdgeDraws
	}
	if opts.Events <= 0 {
		opts.Events = p.defaults.Events
	}
	if len(opts.Tools) == 0 {
		opts.Tools = p.defaults.Tools
	}
	return opts
}

func (p *Pipeline) exportRun(ctx context.Context, snap models.RunSnapshot, order []string, alerts map[string][]models.Alert) ([]string, error) {
	if p.sink == nil {
		return nil, nil
	}

	jsonData, err := export.AlertsJSON(alerts)
	if err != nil {
		return nil, err
	}
	csvData, err := export.AlertsCSV(order, alerts)
	if err != nil {
		return nil, err
	}
	svgData, err := export.GraphSVG(order, snap.Graph.Edges, alerts)
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{export.AlertsJSONName, jsonData, "application/json"},
		{export.AlertsCSVName, csvData, "text/csv"},
		{export.GraphSVGName, svgData, "image/svg+xml"},
	}
	locations := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		loc, err := p.sink.Put(ctx, export.ArtifactKey(snap.RunID, a.name), a.data, a.contentType)
		if err != nil {
			return nil, utils.NewAppError(utils.OpExport, a.name, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
