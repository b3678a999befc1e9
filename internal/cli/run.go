package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/export"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		opts   engine.RunOptions
		local  bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger a correlation run",
		Long: `By default the run executes on the engine (GET /run). With --local the
pipeline runs in-process and writes alerts.json, alerts.csv and graph.svg
below --out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var result models.RunResult
			if local {
				sink, err := export.NewDirSink(outDir)
				if err != nil {
					return err
				}
				snap, err := a.localPipeline(sink).Run(ctx, opts)
				if err != nil {
					return err
				}
				for _, loc := range snap.Artifacts {
					fmt.Fprintf(a.errOut, "wrote %s\n", loc)
				}
				result = snap.Result()
			} else {
				var err error
				if result, err = a.engineClient().Run(ctx, opts); err != nil {
					return err
				}
			}

			if a.jsonOutput() {
				return writeJSON(a.out, result)
			}
			printRunResult(a.out, result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().IntVar(&opts.Events, "events", 0, "number of alerts (0 = engine default)")
	cmd.Flags().IntVar(&opts.Nodes, "nodes", 0, "number of infrastructure nodes (0 = default)")
	cmd.Flags().IntVar(&opts.EdgeDraws, "edges", 0, "edge draws (0 = default)")
	cmd.Flags().StringSliceVar(&opts.Tools, "tool", nil, "monitoring tools to draw from")
	cmd.Flags().BoolVar(&local, "local", false, "run the pipeline in-process")
	cmd.Flags().StringVar(&outDir, "out", ".", "artifact directory for --local runs")
	return cmd
}
