package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestRuleEngineRecommend(t *testing.T) {
	path := writeRules(t, `rules:
  - id: db-critical
    match:
      node: "Service3"
      severity: "ERROR"
    recommendations: ["Fail over the primary", "Check replication lag"]
  - id: datadog
    match:
      tool: "datadog"
    recommendations: ["Open the Datadog monitor", "Check replication lag"]
`)

	engine, err := NewRuleEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	alerts := []models.Alert{{Source: "Service3", Severity: models.SeverityCritical, Tool: "Datadog"}}
	recs := engine.Recommend("Service3", alerts)
	if len(recs) != 3 {
		t.Fatalf("expected 3 unique recommendations, got %v", recs)
	}

	low := []models.Alert{{Source: "Service3", Severity: models.SeverityWarning, Tool: "CloudWatch"}}
	if recs := engine.Recommend("Service3", low); len(recs) != 0 {
		t.Fatalf("expected no recommendations below the severity floor, got %v", recs)
	}
}

func TestRuleEngineRecommendAll(t *testing.T) {
	path := writeRules(t, `rules:
  - id: any-critical
    match:
      severity: CRITICAL
    recommendations: ["Page the on-call"]
`)
	engine, err := NewRuleEngine(path, nil)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}
	out := engine.RecommendAll([]string{"a", "b"}, map[string][]models.Alert{
		"a": {{Severity: models.SeverityCritical}},
		"b": {{Severity: models.SeverityError}},
	})
	if len(out) != 1 || len(out["a"]) != 1 {
		t.Fatalf("unexpected recommendations: %v", out)
	}
}

func TestRuleEngineRejectsUnknownSeverity(t *testing.T) {
	path := writeRules(t, `rules:
  - id: bad
    match:
      severity: "FATAL"
`)
	if _, err := NewRuleEngine(path, nil); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestRuleEngineNoFile(t *testing.T) {
	engine, err := NewRuleEngine("non-existent", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if engine != nil {
		t.Fatalf("expected nil engine when file missing")
	}
	if recs := engine.Recommend("a", nil); recs != nil {
		t.Fatalf("nil engine should not recommend")
	}
}
