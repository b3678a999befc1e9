package models

import (
	"fmt"
	"strings"
	"time"
)

// Severity captures alert urgency. Values are ordered so that comparisons
// follow INFO < WARNING < ERROR < CRITICAL.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR", "CRITICAL"}

// Severities lists every level in ascending order.
func Severities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}
}

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// Valid reports whether s is one of the four defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityInfo && s <= SeverityCritical
}

// ParseSeverity converts a case-insensitive level name.
func ParseSeverity(value string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(strings.TrimSpace(value), name) {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", value)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Alert is a single synthetic alert event raised against a graph node.
// Alerts are treated as immutable once generated.
type Alert struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Tool      string    `json:"tool"`
}

// MaxSeverity returns the most urgent severity in alerts and false when
// alerts is empty.
func MaxSeverity(alerts []Alert) (Severity, bool) {
	if len(alerts) == 0 {
		return SeverityInfo, false
	}
	max := alerts[0].Severity
	for _, a := range alerts[1:] {
		if a.Severity > max {
			max = a.Severity
		}
	}
	return max, true
}
