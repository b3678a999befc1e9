package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-aiops/internal/simulate"
)

func newSimulateCommand(a *app) *cobra.Command {
	var (
		events  int
		seed    int64
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate synthetic dashboard events as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if events <= 0 {
				return fmt.Errorf("--events must be positive")
			}
			records := simulate.DashboardEvents(simulate.NewRand(seed), events, time.Now())
			if outPath == "" {
				return writeJSON(a.out, records)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeJSON(f, records); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "wrote %d events to %s\n", len(records), outPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&events, "events", 50, "number of events to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().StringVar(&outPath, "out", "", "write events to file instead of stdout")
	return cmd
}
