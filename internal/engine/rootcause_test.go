package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/simulate"
	"github.com/miradorstack/mirador-aiops/internal/topology"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

func alert(id, source string, sev models.Severity) models.Alert {
	return models.Alert{ID: id, Source: source, Severity: sev, Timestamp: time.Now().UTC(), Tool: "Datadog"}
}

func TestFindRootCausesLeafWithCritical(t *testing.T) {
	g := topology.New()
	g.AddEdge("lb", "api")
	g.AddEdge("api", "db")
	c := NewCorrelator(nil, g)
	if err := c.AttachEvents([]models.Alert{alert("1", "db", models.SeverityCritical)}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	roots, tel := c.FindRootCauses()
	if len(roots) != 1 || roots[0] != "db" {
		t.Fatalf("expected [db], got %v", roots)
	}
	if tel.CorrelatedNodes != 1 || tel.Algorithm != AlgorithmName {
		t.Fatalf("unexpected telemetry: %+v", tel)
	}
}

func TestFindRootCausesExcludesNodeWithAlertingSuccessor(t *testing.T) {
	g := topology.New()
	g.AddEdge("api", "db")
	c := NewCorrelator(nil, g)
	err := c.AttachEvents([]models.Alert{
		alert("1", "api", models.SeverityCritical),
		alert("2", "db", models.SeverityInfo),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	roots, _ := c.FindRootCauses()
	if len(roots) != 0 {
		t.Fatalf("expected no root causes, got %v", roots)
	}
}

func TestFindRootCausesIgnoresLowSeverity(t *testing.T) {
	g := topology.New()
	g.AddNode("cache")
	c := NewCorrelator(nil, g)
	_ = c.AttachEvents([]models.Alert{
		alert("1", "cache", models.SeverityWarning),
		alert("2", "cache", models.SeverityInfo),
	})
	if roots, _ := c.FindRootCauses(); len(roots) != 0 {
		t.Fatalf("expected no root causes, got %v", roots)
	}
}

func TestFindRootCausesSingleHopOnly(t *testing.T) {
	// a -> b -> c: b alerts, so a is excluded even though c is quiet.
	g := topology.New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	c := NewCorrelator(nil, g)
	_ = c.AttachEvents([]models.Alert{
		alert("1", "a", models.SeverityError),
		alert("2", "b", models.SeverityError),
	})
	roots, _ := c.FindRootCauses()
	if len(roots) != 1 || roots[0] != "b" {
		t.Fatalf("expected [b], got %v", roots)
	}
}

func TestFindRootCausesCycleAndSelfLoop(t *testing.T) {
	g := topology.New()
	g.AddEdge("x", "y")
	g.AddEdge("y", "x")
	g.AddEdge("z", "z")
	c := NewCorrelator(nil, g)
	_ = c.AttachEvents([]models.Alert{
		alert("1", "x", models.SeverityCritical),
		alert("2", "z", models.SeverityCritical),
	})
	roots, _ := c.FindRootCauses()
	// x's successor y is quiet; z is its own successor and alerts.
	if len(roots) != 1 || roots[0] != "x" {
		t.Fatalf("expected [x], got %v", roots)
	}
}

func TestFindRootCausesEmptyGraph(t *testing.T) {
	c := NewCorrelator(nil, nil)
	roots, tel := c.FindRootCauses()
	if len(roots) != 0 || tel.TotalNodes != 0 || tel.TotalEdges != 0 {
		t.Fatalf("expected empty result, got %v %+v", roots, tel)
	}
	if roots == nil {
		t.Fatalf("expected non-nil empty slice")
	}
}

func TestAttachEventsUnknownNode(t *testing.T) {
	c := NewCorrelator(nil, topology.New())
	err := c.AttachEvents([]models.Alert{alert("1", "ghost", models.SeverityError)})
	if !errors.Is(err, topology.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if op, _ := utils.OpOf(err); op != utils.OpAttachEvents {
		t.Fatalf("expected attach events op, got %q", op)
	}
}

func TestRootCausePropertiesOnRandomGraphs(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g, ids := topology.BuildInfra(rng, 15, 25)
		gen, err := simulate.NewGenerator(ids, nil, rng)
		if err != nil {
			t.Fatalf("generator: %v", err)
		}
		c := NewCorrelator(nil, g)
		if err := c.AttachEvents(gen.GenerateBatch(rng.Intn(40))); err != nil {
			t.Fatalf("attach: %v", err)
		}
		roots, tel := c.FindRootCauses()

		if tel.TotalNodes != g.NodeCount() || tel.TotalEdges != g.EdgeCount() {
			t.Fatalf("seed %d: telemetry counts %d/%d, graph %d/%d", seed, tel.TotalNodes, tel.TotalEdges, g.NodeCount(), g.EdgeCount())
		}
		isRoot := make(map[string]bool, len(roots))
		for _, r := range roots {
			isRoot[r] = true
		}
		for _, node := range g.Nodes() {
			alertingSucc := false
			for _, s := range g.Successors(node.ID) {
				if n, _ := g.Node(s); len(n.Alerts) > 0 {
					alertingSucc = true
				}
			}
			if alertingSucc && isRoot[node.ID] {
				t.Fatalf("seed %d: %s has an alerting successor but was flagged", seed, node.ID)
			}
			if max, ok := models.MaxSeverity(node.Alerts); ok && max == models.SeverityCritical && len(g.Successors(node.ID)) == 0 && !isRoot[node.ID] {
				t.Fatalf("seed %d: leaf %s with CRITICAL alert not flagged", seed, node.ID)
			}
		}
	}
}

func TestGraphDataUsesLastAlertSeverity(t *testing.T) {
	g := topology.New()
	g.AddEdge("a", "b")
	c := NewCorrelator(nil, g)
	_ = c.AttachEvents([]models.Alert{
		alert("1", "a", models.SeverityCritical),
		alert("2", "a", models.SeverityWarning),
	})
	data := c.GraphData()
	if len(data.Nodes) != 2 || len(data.Edges) != 1 {
		t.Fatalf("unexpected graph data: %+v", data)
	}
	if data.Nodes[0].Severity != models.SeverityWarning {
		t.Fatalf("expected WARNING for a, got %s", data.Nodes[0].Severity)
	}
	if data.Nodes[1].Severity != models.SeverityInfo {
		t.Fatalf("expected INFO for quiet node, got %s", data.Nodes[1].Severity)
	}
}
