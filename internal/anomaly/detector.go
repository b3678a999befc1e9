package anomaly

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Config tunes the isolation forest.
type Config struct {
	Trees         int     `yaml:"trees"`
	SampleSize    int     `yaml:"sampleSize"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`
}

// DefaultConfig mirrors the classic isolation forest settings used by the dashboard.
func DefaultConfig() Config {
	return Config{Trees: 100, SampleSize: 256, Contamination: 0.05, Seed: 42}
}

// Detector labels event records as anomalous using an isolation forest trained on a batch.
type Detector struct {
	cfg     Config
	logger  *slog.Logger
	forest  *Forest
	encoder *CategoryEncoder
	offset  float64
}

// NewDetector constructs an untrained detector.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	def := DefaultConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		cfg.Contamination = def.Contamination
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// Train fits the forest on records and calibrates the outlier threshold so
// that roughly the contamination fraction of the batch falls below it.
func (d *Detector) Train(records []models.EventRecord) error {
	encoder := FitCategories(records)
	rows, err := Prepare(records, encoder)
	if err != nil {
		return fmt.Errorf("prepare features: %w", err)
	}

	forest := NewForest(d.cfg.Trees, d.cfg.SampleSize, rand.New(rand.NewSource(d.cfg.Seed)))
	forest.Fit(rows)

	raw := make([]float64, len(rows))
	for i, row := range rows {
		raw[i] = -forest.Score(row)
	}

	d.forest = forest
	d.encoder = encoder
	d.offset = percentile(raw, d.cfg.Contamination*100)
	d.logger.Debug("anomaly detector trained",
		slog.Int("rows", len(rows)),
		slog.Int("categories", encoder.Len()),
		slog.Float64("offset", d.offset),
	)
	return nil
}

// Predict scores records with the trained forest. AnomalyScore is the
// decision function: higher means more normal, negative means outlier.
func (d *Detector) Predict(records []models.EventRecord) ([]models.Detection, error) {
	if d.forest == nil || !d.forest.Trained() {
		return nil, ErrNotTrained
	}
	rows, err := Prepare(records, d.encoder)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}

	out := make([]models.Detection, len(records))
	for i, row := range rows {
		decision := -d.forest.Score(row) - d.offset
		out[i] = models.Detection{
			EventRecord:  records[i],
			IsAnomaly:    decision < 0,
			AnomalyScore: decision,
		}
	}
	return out, nil
}

// Detect trains on records and scores the same batch.
func (d *Detector) Detect(records []models.EventRecord) ([]models.Detection, error) {
	if err := d.Train(records); err != nil {
		return nil, err
	}
	return d.Predict(records)
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
