package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

func newGraphCmd() *cobra.Command {
	var (
		format    string
		output    string
		keepGoing bool
	)

	cmd := &cobra.Command{
		Use:   "graph SCRIPT",
		Short: "Apply a script and export the cell dependency graph",
		Long:  `Apply a script of cell edits and export the dependency graph, with an edge from every cell to each cell that reads it. Placeholder cells that are referenced but never written are drawn dashed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatDOT && format != formatSVG {
				return fmt.Errorf("unsupported format %q (want %q or %q)", format, formatDOT, formatSVG)
			}
			ctx := cmd.Context()
			if !cmd.Flags().Changed("keep-going") {
				keepGoing = configFromContext(ctx).Script.KeepGoing
			}

			s, err := loadSheet(ctx, args[0], cmd.InOrStdin(), keepGoing)
			if err != nil {
				return err
			}

			data := []byte(s.DependencyDOT())
			if format == formatSVG {
				if data, err = RenderSVG(ctx, string(data)); err != nil {
					return err
				}
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			loggerFromContext(ctx).Infof("Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "log and skip rejected statements")

	return cmd
}
