package models

import "time"

// Telemetry summarises a single correlation pass. It is recomputed on every run.
type Telemetry struct {
	Algorithm       string  `json:"algorithm"`
	TimeTakenSec    float64 `json:"time_taken_sec"`
	TotalNodes      int     `json:"total_nodes"`
	TotalEdges      int     `json:"total_edges"`
	CorrelatedNodes int     `json:"correlated_nodes"`
}

// GraphNode is the render-friendly view of a topology node. Severity is the
// most recently attached alert's; Worst is the highest seen.
type GraphNode struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Severity   Severity `json:"severity"`
	Worst      Severity `json:"worst"`
	AlertCount int      `json:"alert_count"`
	// Anomalous is set on dashboard graphs for sources with a flagged event.
	Anomalous bool `json:"anomalous"`
}

// GraphEdge is the render-friendly view of a dependency edge.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphData is the node/edge snapshot served to the graph view.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EmptyGraphData returns a snapshot with non-nil empty slices so it encodes as [] not null.
func EmptyGraphData() GraphData {
	return GraphData{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
}

// RunResult is the response of a simulate-correlate-export cycle.
type RunResult struct {
	RootCauses []string  `json:"root_causes"`
	Telemetry  Telemetry `json:"telemetry"`
}

// RunSnapshot is everything retained about the most recent run.
type RunSnapshot struct {
	RunID           string              `json:"run_id"`
	StartedAt       time.Time           `json:"started_at"`
	RootCauses      []string            `json:"root_causes"`
	Telemetry       Telemetry           `json:"telemetry"`
	Graph           GraphData           `json:"graph"`
	Recommendations map[string][]string `json:"recommendations,omitempty"`
	Artifacts       []string            `json:"artifacts,omitempty"`
}

// Result projects the snapshot onto the public run response.
func (s RunSnapshot) Result() RunResult {
	roots := s.RootCauses
	if roots == nil {
		roots = []string{}
	}
	return RunResult{RootCauses: roots, Telemetry: s.Telemetry}
}

// EventRecord is one row of the tabular batch fed to the anomaly detector.
// Timestamp is kept as text so malformed input is detected during feature
// preparation rather than decoding.
type EventRecord struct {
	SourceNode string  `json:"source_node"`
	Severity   float64 `json:"severity"`
	Timestamp  string  `json:"timestamp"`
	Tool       string  `json:"tool,omitempty"`
}

// Detection is an EventRecord labelled by the anomaly detector.
type Detection struct {
	EventRecord
	IsAnomaly    bool    `json:"is_anomaly"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// DashboardSummary condenses a detection batch into headline figures.
type DashboardSummary struct {
	TotalEvents int            `json:"total_events"`
	Anomalies   int            `json:"anomalies"`
	RootCauses  []string       `json:"root_causes"`
	ToolCounts  map[string]int `json:"tool_counts"`
}

// DashboardReport is the full output of a dashboard analysis pass.
type DashboardReport struct {
	Summary      DashboardSummary `json:"summary"`
	Detections   []Detection      `json:"detections"`
	Graph        GraphData        `json:"graph"`
	Explanations []string         `json:"explanations"`
}

// Hotspot reports how often a node was flagged as a root cause across recent runs.
type Hotspot struct {
	Node       string    `json:"node"`
	Count      int       `json:"count"`
	Prevalence float64   `json:"prevalence"`
	LastSeen   time.Time `json:"last_seen"`
}
