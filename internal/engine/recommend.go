package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// RuleEngine attaches remediation hints to root-cause nodes from a YAML rule pack.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. Severity is a
// floor: the node must carry at least one alert at or above it.
type RuleMatch struct {
	Node     string `yaml:"node"`
	Severity string `yaml:"severity"`
	Tool     string `yaml:"tool"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file does not exist, returns a nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, utils.NewAppError(utils.OpLoadRules, path, err)
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, utils.NewAppError(utils.OpLoadRules, path, err)
	}
	for _, rule := range cfg.Rules {
		if rule.Match.Severity == "" {
			continue
		}
		if _, err := models.ParseSeverity(rule.Match.Severity); err != nil {
			return nil, utils.NewAppError(utils.OpLoadRules, fmt.Sprintf("rule %s", rule.ID), err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Recommend returns the recommendations of every rule matching node and its alerts.
func (e *RuleEngine) Recommend(node string, alerts []models.Alert) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if rule.Match.Node != "" && !strings.EqualFold(rule.Match.Node, node) {
			continue
		}
		if rule.Match.Severity != "" && !alertsReach(rule.Match.Severity, alerts) {
			continue
		}
		if rule.Match.Tool != "" && !alertsFromTool(rule.Match.Tool, alerts) {
			continue
		}
		matched = appendUnique(matched, rule.Recommendations...)
	}
	if len(matched) > 0 {
		e.logger.Debug("rules matched", slog.String("node", node), slog.Int("recommendations", len(matched)))
	}
	return matched
}

// RecommendAll maps each root cause to its recommendations, omitting nodes without any.
func (e *RuleEngine) RecommendAll(roots []string, alerts map[string][]models.Alert) map[string][]string {
	if e == nil || len(roots) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, root := range roots {
		if recs := e.Recommend(root, alerts[root]); len(recs) > 0 {
			out[root] = recs
		}
	}
	return out
}

func alertsReach(floor string, alerts []models.Alert) bool {
	min, err := models.ParseSeverity(floor)
	if err != nil {
		return false
	}
	max, ok := models.MaxSeverity(alerts)
	return ok && max >= min
}

func alertsFromTool(tool string, alerts []models.Alert) bool {
	for _, a := range alerts {
		if strings.EqualFold(tool, a.Tool) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
