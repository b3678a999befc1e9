package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-aiops/internal/anomaly"
	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/export"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

func newDetectCommand(a *app) *cobra.Command {
	var (
		inPath  string
		events  int
		seed    int64
		remote  bool
		csvPath string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Label events with the isolation forest and summarise them",
		Long: `Without --in, a fresh batch of dashboard events is simulated first.
With --remote the engine does the work; otherwise detection runs locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			report, err := a.detect(ctx, inPath, cmd.InOrStdin(), events, seed, remote)
			if err != nil {
				return err
			}
			if csvPath != "" {
				data, err := export.DetectionsCSV(report.Detections)
				if err != nil {
					return err
				}
				if err := os.WriteFile(csvPath, data, 0644); err != nil {
					return err
				}
			}
			if a.jsonOutput() {
				return writeJSON(a.out, report)
			}
			return printReport(a.out, report)
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "JSON file of event records ('-' for stdin)")
	cmd.Flags().IntVar(&events, "events", 50, "events to simulate when --in is not given")
	cmd.Flags().Int64Var(&seed, "seed", 0, "simulation seed (0 = time based)")
	cmd.Flags().BoolVar(&remote, "remote", false, "run detection on the engine")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the labelled events as CSV")
	return cmd
}

func (a *app) detect(ctx context.Context, inPath string, stdin io.Reader, events int, seed int64, remote bool) (models.DashboardReport, error) {
	if inPath == "" {
		if remote {
			return a.engineClient().Dashboard(ctx, engine.DashboardOptions{Seed: seed, Events: events})
		}
		return a.localPipeline(nil).Analyze(ctx, engine.DashboardOptions{Seed: seed, Events: events})
	}

	records, err := readRecords(inPath, stdin)
	if err != nil {
		return models.DashboardReport{}, err
	}
	if remote {
		return a.engineClient().Detect(ctx, records)
	}
	return a.localPipeline(nil).Report(ctx, records)
}

// localPipeline builds an in-process pipeline that logs warnings to stderr.
func (a *app) localPipeline(sink export.Sink) *engine.Pipeline {
	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return engine.NewPipeline(logger, sink, nil, nil, anomaly.DefaultConfig(), engine.DefaultSimulation())
}
