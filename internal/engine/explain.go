package engine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Explain renders a one-line narrative for a labelled event.
func Explain(d models.Detection) string {
	if d.IsAnomaly {
		return fmt.Sprintf("%s triggered a critical anomaly via %s with severity %s.", d.SourceNode, d.Tool, formatScore(d.Severity))
	}
	return fmt.Sprintf("%s is normal. No issues detected.", d.SourceNode)
}

// EventLogLine renders a labelled event as a console log line.
func EventLogLine(d models.Detection) string {
	marker := "OK"
	if d.IsAnomaly {
		marker = "ANOMALY"
	}
	return fmt.Sprintf("[%s] [%s] %s via %s - Severity %s", marker, d.Timestamp, d.SourceNode, d.Tool, formatScore(d.Severity))
}

// Summarize computes the dashboard headline figures. Root causes are the
// distinct sources of anomalous events, in first-seen order.
func Summarize(detections []models.Detection) models.DashboardSummary {
	summary := models.DashboardSummary{
		TotalEvents: len(detections),
		RootCauses:  []string{},
		ToolCounts:  make(map[string]int),
	}
	seen := make(map[string]struct{})
	for _, d := range detections {
		if d.Tool != "" {
			summary.ToolCounts[d.Tool]++
		}
		if !d.IsAnomaly {
			continue
		}
		summary.Anomalies++
		if _, ok := seen[d.SourceNode]; ok {
			continue
		}
		seen[d.SourceNode] = struct{}{}
		summary.RootCauses = append(summary.RootCauses, d.SourceNode)
	}
	return summary
}

// ToolsByCount lists tool names from most to least used.
func ToolsByCount(counts map[string]int) []string {
	tools := make([]string, 0, len(counts))
	for tool := range counts {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		if counts[tools[i]] != counts[tools[j]] {
			return counts[tools[i]] > counts[tools[j]]
		}
		return tools[i] < tools[j]
	})
	return tools
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
