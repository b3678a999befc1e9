package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Default artifact names.
const (
	AlertsJSONName     = "alerts.json"
	AlertsCSVName      = "alerts.csv"
	GraphSVGName       = "graph.svg"
	DetectionsCSVName  = "aiops_events.csv"
	TimestampCSVLayout = "2006-01-02T15:04:05.999999"
)

var alertsCSVHeader = []string{"source", "severity", "timestamp", "tool"}

// AlertsJSON encodes {node: [alert, ...]} for every node with at least one alert.
func AlertsJSON(alerts map[string][]models.Alert) ([]byte, error) {
	out := make(map[string][]models.Alert, len(alerts))
	for node, list := range alerts {
		if len(list) == 0 {
			continue
		}
		out[node] = list
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode alerts json: %w", err)
	}
	return data, nil
}

// LoadAlertsJSON decodes a document produced by AlertsJSON.
func LoadAlertsJSON(r io.Reader) (map[string][]models.Alert, error) {
	var out map[string][]models.Alert
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode alerts json: %w", err)
	}
	if out == nil {
		out = make(map[string][]models.Alert)
	}
	return out, nil
}

// AlertsCSV writes one row per alert, walking nodes in the given order.
func AlertsCSV(order []string, alerts map[string][]models.Alert) ([]byte, error) {
	if order == nil {
		order = make([]string, 0, len(alerts))
		for node := range alerts {
			order = append(order, node)
		}
		sort.Strings(order)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(alertsCSVHeader); err != nil {
		return nil, err
	}
	for _, node := range order {
		for _, a := range alerts[node] {
			row := []string{a.Source, a.Severity.String(), a.Timestamp.UTC().Format(TimestampCSVLayout), a.Tool}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DetectionsCSV writes the dashboard event table.
func DetectionsCSV(detections []models.Detection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"timestamp", "source_node", "severity", "tool", "is_anomaly", "anomaly_score"}); err != nil {
		return nil, err
	}
	for _, d := range detections {
		row := []string{
			d.Timestamp,
			d.SourceNode,
			fmt.Sprintf("%g", d.Severity),
			d.Tool,
			fmt.Sprintf("%t", d.IsAnomaly),
			fmt.Sprintf("%.6f", d.AnomalyScore),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ArtifactKey builds a per-run object name such as runs/<id>/alerts.json.
func ArtifactKey(runID, name string) string {
	if runID == "" {
		return name
	}
	return "runs/" + runID + "/" + name
}

// RunID derives a sortable run identifier from start time and a suffix.
func RunID(start time.Time, suffix string) string {
	id := start.UTC().Format("20060102T150405")
	if suffix != "" {
		id += "-" + suffix
	}
	return id
}
