package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGraphCommand(a *app) *cobra.Command {
	var svgPath string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the dependency graph of the engine's latest run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			c := a.engineClient()

			if svgPath != "" {
				svg, err := c.GraphSVG(ctx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(svgPath, svg, 0644); err != nil {
					return err
				}
				fmt.Fprintf(a.errOut, "wrote %s\n", svgPath)
			}

			data, err := c.GraphData(ctx)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(a.out, data)
			}
			if len(data.Nodes) == 0 {
				fmt.Fprintln(a.out, "no run has completed yet")
				return nil
			}
			return printGraph(a.out, data)
		},
	}

	cmd.Flags().StringVar(&svgPath, "svg", "", "also save the rendered graph image")
	return cmd
}
