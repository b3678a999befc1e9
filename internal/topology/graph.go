package topology

import (
	"errors"
	"fmt"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// ErrUnknownNode is returned when an operation references a node that is not in the graph.
var ErrUnknownNode = errors.New("unknown node")

// Node is a graph vertex together with the alerts attached to it.
type Node struct {
	ID     string
	Alerts []models.Alert
}

// Edge is a directed dependency from Source to the dependent Target.
type Edge struct {
	Source string
	Target string
}

// Graph is a directed, possibly cyclic dependency graph. Node ids are unique
// and iteration follows insertion order. Parallel edges collapse into one.
type Graph struct {
	order []string
	nodes map[string]*Node
	edges []Edge
	succ  map[string][]string
	seen  map[Edge]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		succ:  make(map[string][]string),
		seen:  make(map[Edge]struct{}),
	}
}

// AddNode inserts id if it is not present yet.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &Node{ID: id}
	g.order = append(g.order, id)
}

// AddEdge inserts source -> target, creating either endpoint when missing.
func (g *Graph) AddEdge(source, target string) {
	g.AddNode(source)
	g.AddNode(target)
	e := Edge{Source: source, Target: target}
	if _, dup := g.seen[e]; dup {
		return
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.succ[source] = append(g.succ[source], target)
}

// Attach appends alert to the node named by alert.Source.
func (g *Graph) Attach(alert models.Alert) error {
	node, ok := g.nodes[alert.Source]
	if !ok {
		return fmt.Errorf("attach alert %s: %w: %q", alert.ID, ErrUnknownNode, alert.Source)
	}
	node.Alerts = append(node.Alerts, alert)
	return nil
}

// Node returns the node for id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.order...)
}

// Edges returns edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Successors returns the direct dependents of id.
func (g *Graph) Successors(id string) []string {
	return g.succ[id]
}

func (g *Graph) NodeCount() int { return len(g.order) }

func (g *Graph) EdgeCount() int { return len(g.edges) }
