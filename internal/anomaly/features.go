package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

var (
	// ErrEmptyBatch is returned when there are no rows to train or score.
	ErrEmptyBatch = errors.New("empty event batch")
	// ErrInvalidInput is returned when a column cannot be coerced to a number.
	ErrInvalidInput = errors.New("invalid input data")
	// ErrNotTrained is returned by Predict before Train.
	ErrNotTrained = errors.New("detector not trained")
)

// Column order of the feature matrix.
const (
	FeatureSeverity = iota
	FeatureTimestamp
	FeatureSourceNode
	featureWidth
)

// CategoryEncoder maps source node names to ordinal codes. Codes follow the
// sorted order of the names seen at fit time.
type CategoryEncoder struct {
	codes map[string]int
}

// FitCategories builds an encoder over the distinct source nodes in records.
func FitCategories(records []models.EventRecord) *CategoryEncoder {
	names := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seen[r.SourceNode]; ok {
			continue
		}
		seen[r.SourceNode] = struct{}{}
		names = append(names, r.SourceNode)
	}
	sort.Strings(names)
	enc := &CategoryEncoder{codes: make(map[string]int, len(names))}
	for i, name := range names {
		enc.codes[name] = i
	}
	return enc
}

// Code returns the ordinal for name and whether it was known at fit time.
func (e *CategoryEncoder) Code(name string) (int, bool) {
	code, ok := e.codes[name]
	return code, ok
}

// extend returns a copy of e where names missing from it get codes past the
// known range, in sorted order. e is never modified.
func (e *CategoryEncoder) extend(records []models.EventRecord) *CategoryEncoder {
	var unseen []string
	for _, r := range records {
		if _, ok := e.codes[r.SourceNode]; !ok {
			unseen = append(unseen, r.SourceNode)
		}
	}
	if len(unseen) == 0 {
		return e
	}
	out := &CategoryEncoder{codes: make(map[string]int, len(e.codes)+len(unseen))}
	for name, code := range e.codes {
		out.codes[name] = code
	}
	sort.Strings(unseen)
	for _, name := range unseen {
		if _, ok := out.codes[name]; !ok {
			out.codes[name] = len(out.codes)
		}
	}
	return out
}

// Len reports the number of known categories.
func (e *CategoryEncoder) Len() int { return len(e.codes) }

// Prepare projects records onto the [severity, timestamp, source code] matrix.
func Prepare(records []models.EventRecord, enc *CategoryEncoder) ([][]float64, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}
	if enc == nil {
		enc = FitCategories(records)
	} else {
		enc = enc.extend(records)
	}
	rows := make([][]float64, 0, len(records))
	for i, r := range records {
		if math.IsNaN(r.Severity) || math.IsInf(r.Severity, 0) {
			return nil, fmt.Errorf("row %d: severity %v: %w", i, r.Severity, ErrInvalidInput)
		}
		ts, err := utils.ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v: %w", i, err, ErrInvalidInput)
		}
		row := make([]float64, featureWidth)
		row[FeatureSeverity] = r.Severity
		row[FeatureTimestamp] = float64(ts.UnixNano())
		code, _ := enc.Code(r.SourceNode)
		row[FeatureSourceNode] = float64(code)
		rows = append(rows, row)
	}
	return rows, nil
}
