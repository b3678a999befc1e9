package engine

import (
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/topology"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// AlgorithmName labels telemetry produced by the correlator.
const AlgorithmName = "Graph Traversal (Dependency Heuristics)"

// Correlator attaches alerts to a dependency graph and flags root-cause nodes.
// A Correlator is owned by a single run and is not safe for concurrent use.
type Correlator struct {
	logger    *slog.Logger
	graph     *topology.Graph
	telemetry models.Telemetry
}

// NewCorrelator constructs a Correlator over graph.
func NewCorrelator(logger *slog.Logger, graph *topology.Graph) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	if graph == nil {
		graph = topology.New()
	}
	return &Correlator{logger: logger, graph: graph}
}

// Graph exposes the underlying topology.
func (c *Correlator) Graph() *topology.Graph { return c.graph }

// AttachEvents appends each alert to its source node. It stops at the first
// alert whose source is not part of the graph.
func (c *Correlator) AttachEvents(events []models.Alert) error {
	for _, ev := range events {
		if err := c.graph.Attach(ev); err != nil {
			return utils.NewAppError(utils.OpAttachEvents, "alert references unknown node", err)
		}
	}
	return nil
}

// FindRootCauses flags every node that carries an ERROR or CRITICAL alert
// while none of its direct successors carry any alert. Only one hop is
// inspected: an upstream cause whose dependents also alert is not flagged.
func (c *Correlator) FindRootCauses() ([]string, models.Telemetry) {
	start := time.Now()
	roots := make([]string, 0)
	for _, node := range c.graph.Nodes() {
		if !hasSevereAlert(node.Alerts) {
			continue
		}
		if c.successorsQuiet(node.ID) {
			roots = append(roots, node.ID)
		}
	}

	c.telemetry = models.Telemetry{
		Algorithm:       AlgorithmName,
		TimeTakenSec:    utils.RoundSeconds(time.Since(start), 5),
		TotalNodes:      c.graph.NodeCount(),
		TotalEdges:      c.graph.EdgeCount(),
		CorrelatedNodes: len(roots),
	}
	c.logger.Debug("root causes evaluated",
		slog.Int("nodes", c.telemetry.TotalNodes),
		slog.Int("edges", c.telemetry.TotalEdges),
		slog.Int("root_causes", len(roots)),
	)
	return roots, c.telemetry
}

// Telemetry returns the snapshot recorded by the last FindRootCauses call.
func (c *Correlator) Telemetry() models.Telemetry { return c.telemetry }

// Alerts returns alerts grouped by node for nodes with at least one alert.
func (c *Correlator) Alerts() map[string][]models.Alert {
	out := make(map[string][]models.Alert)
	for _, node := range c.graph.Nodes() {
		if len(node.Alerts) == 0 {
			continue
		}
		out[node.ID] = append([]models.Alert(nil), node.Alerts...)
	}
	return out
}

// GraphData renders the graph for the web view. A node's severity is that of
// its most recently attached alert, INFO when it has none.
func (c *Correlator) GraphData() models.GraphData {
	data := models.EmptyGraphData()
	for _, node := range c.graph.Nodes() {
		sev := models.SeverityInfo
		if n := len(node.Alerts); n > 0 {
			sev = node.Alerts[n-1].Severity
		}
		worst, _ := models.MaxSeverity(node.Alerts)
		data.Nodes = append(data.Nodes, models.GraphNode{
			ID:         node.ID,
			Label:      node.ID,
			Severity:   sev,
			Worst:      worst,
			AlertCount: len(node.Alerts),
		})
	}
	for _, e := range c.graph.Edges() {
		data.Edges = append(data.Edges, models.GraphEdge{Source: e.Source, Target: e.Target})
	}
	return data
}

func (c *Correlator) successorsQuiet(id string) bool {
	for _, succ := range c.graph.Successors(id) {
		if n, ok := c.graph.Node(succ); ok && len(n.Alerts) > 0 {
			return false
		}
	}
	return true
}

func hasSevereAlert(alerts []models.Alert) bool {
	for _, a := range alerts {
		if a.Severity >= models.SeverityError {
			return true
		}
	}
	return false
}
