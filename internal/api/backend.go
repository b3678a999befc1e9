package api

import (
	"context"
	"errors"

	"github.com/miradorstack/mirador-aiops/internal/anomaly"
	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/topology"
)

// ErrBadRequest marks malformed request parameters.
var ErrBadRequest = errors.New("bad request")

// Backend is the operation set served by both the HTTP and gRPC shells.
type Backend interface {
	Run(ctx context.Context, opts engine.RunOptions) (models.RunSnapshot, error)
	GraphData(ctx context.Context) (models.GraphData, error)
	GraphSVG(ctx context.Context) ([]byte, error)
	Detect(ctx context.Context, records []models.EventRecord) (models.DashboardReport, error)
	Dashboard(ctx context.Context, opts engine.DashboardOptions) (models.DashboardReport, error)
	Hotspots(ctx context.Context) ([]models.Hotspot, error)
}

// Subscriber streams published run snapshots.
type Subscriber interface {
	Subscribe(buffer int) (<-chan models.RunSnapshot, func())
}

// isInvalidInput reports whether err was caused by the caller's input.
func isInvalidInput(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, anomaly.ErrInvalidInput) ||
		errors.Is(err, anomaly.ErrEmptyBatch) ||
		errors.Is(err, topology.ErrUnknownNode) ||
		errors.Is(err, engine.ErrTooManyEvents) ||
		errors.Is(err, engine.ErrTopologyTooLarge)
}
