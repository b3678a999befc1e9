package simulate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// DefaultTools are the monitoring tools alerts are attributed to on the correlation path.
var DefaultTools = []string{"CloudWatch", "Datadog"}

// severityWeights is the fixed sampling distribution, ascending by severity.
var severityWeights = []float64{0.4, 0.3, 0.2, 0.1}

// Generator fabricates alert events against a fixed set of nodes.
type Generator struct {
	nodes []string
	tools []string
	rng   *rand.Rand
	now   func() time.Time
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator constructs a Generator. A nil rng falls back to a time-seeded source.
func NewGenerator(nodes, tools []string, rng *rand.Rand, opts ...Option) (*Generator, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("generator requires at least one node")
	}
	if len(tools) == 0 {
		tools = DefaultTools
	}
	if rng == nil {
		rng = NewRand(0)
	}
	g := &Generator{
		nodes: append([]string(nil), nodes...),
		tools: append([]string(nil), tools...),
		rng:   rng,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateEvent produces one alert for node.
func (g *Generator) GenerateEvent(node string) models.Alert {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		id = uuid.New()
	}
	return models.Alert{
		ID:        "evt_" + id.String(),
		Source:    node,
		Severity:  g.sampleSeverity(),
		Timestamp: g.now().UTC(),
		Tool:      g.tools[g.rng.Intn(len(g.tools))],
	}
}

// GenerateBatch produces count alerts, each against a uniformly drawn node.
func (g *Generator) GenerateBatch(count int) []models.Alert {
	if count <= 0 {
		return nil
	}
	events := make([]models.Alert, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, g.GenerateEvent(g.nodes[g.rng.Intn(len(g.nodes))]))
	}
	return events
}

func (g *Generator) sampleSeverity() models.Severity {
	r := g.rng.Float64()
	acc := 0.0
	for i, w := range severityWeights {
		acc += w
		if r < acc {
			return models.Severity(i)
		}
	}
	return models.SeverityCritical
}

// NewRand returns a source seeded with seed, or with the current time when seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
