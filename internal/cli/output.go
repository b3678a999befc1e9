package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readRecords(path string, stdin io.Reader) ([]models.EventRecord, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var records []models.EventRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func printReport(w io.Writer, report models.DashboardReport) error {
	s := report.Summary
	fmt.Fprintf(w, "Total events: %d   Anomalies: %d   Root causes: %d\n",
		s.TotalEvents, s.Anomalies, len(s.RootCauses))
	if len(s.RootCauses) > 0 {
		fmt.Fprintf(w, "Anomalous sources: %s\n", strings.Join(s.RootCauses, ", "))
	}
	tools := engine.ToolsByCount(s.ToolCounts)
	parts := make([]string, 0, len(tools))
	for _, tool := range tools {
		parts = append(parts, fmt.Sprintf("%s=%d", tool, s.ToolCounts[tool]))
	}
	fmt.Fprintf(w, "Tools: %s\n\n", strings.Join(parts, " "))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSEVERITY\tANOMALY\tSCORE")
	for _, d := range report.Detections {
		mark := "no"
		if d.IsAnomaly {
			mark = "YES"
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%.3f\n", d.SourceNode, d.Severity, mark, d.AnomalyScore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nEvent log:")
	for _, d := range report.Detections {
		fmt.Fprintln(w, engine.EventLogLine(d))
	}
	fmt.Fprintln(w, "\nAnalysis:")
	for _, line := range report.Explanations {
		fmt.Fprintf(w, "- %s\n", line)
	}
	return nil
}

func printRunResult(w io.Writer, result models.RunResult) {
	t := result.Telemetry
	fmt.Fprintf(w, "Algorithm:        %s\n", t.Algorithm)
	fmt.Fprintf(w, "Nodes / edges:    %d / %d\n", t.TotalNodes, t.TotalEdges)
	fmt.Fprintf(w, "Time taken (s):   %g\n", t.TimeTakenSec)
	fmt.Fprintf(w, "Correlated nodes: %d\n", t.CorrelatedNodes)
	if len(result.RootCauses) == 0 {
		fmt.Fprintln(w, "Root causes:      none")
		return
	}
	fmt.Fprintf(w, "Root causes:      %s\n", strings.Join(result.RootCauses, ", "))
}

func printGraph(w io.Writer, data models.GraphData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tLAST SEVERITY\tWORST\tALERTS")
	for _, n := range data.Nodes {
		worst := "-"
		if n.AlertCount > 0 {
			worst = n.Worst.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", n.ID, n.Severity, worst, n.AlertCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d edges\n", len(data.Edges))
	for _, e := range data.Edges {
		fmt.Fprintf(w, "  %s -> %s\n", e.Source, e.Target)
	}
	return nil
}
