package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vogtb/go-spreadsheet/internal/config"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// runOpts holds the command-line flags for the run command. Flags that are
// not set fall back to sheet.toml.
type runOpts struct {
	texts     bool // print raw texts instead of values
	pretty    bool // draw a bordered table
	keepGoing bool // skip rejected statements instead of stopping
}

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Apply a script of cell edits and print the grid",
		Long: `Apply a script of cell edits and print the grid.

Each script line is one of:
  set POS TEXT   write TEXT (may be empty) to POS, e.g. "set B1 =A1*2"
  clear POS      clear POS
  # comment

Use "-" to read the script from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			flags := cmd.Flags()

			mode := cfg.Print.Mode
			if flags.Changed("texts") {
				mode = config.ModeValues
				if opts.texts {
					mode = config.ModeTexts
				}
			}
			pretty := cfg.Print.Pretty
			if flags.Changed("pretty") {
				pretty = opts.pretty
			}
			keepGoing := cfg.Script.KeepGoing
			if flags.Changed("keep-going") {
				keepGoing = opts.keepGoing
			}

			s, err := loadSheet(cmd.Context(), args[0], cmd.InOrStdin(), keepGoing)
			if err != nil {
				return err
			}
			return printSheet(cmd.OutOrStdout(), s, mode, pretty)
		},
	}

	cmd.Flags().BoolVar(&opts.texts, "texts", false, "print raw cell texts instead of values")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "draw the grid as a table")
	cmd.Flags().BoolVar(&opts.keepGoing, "keep-going", false, "log and skip rejected statements")

	return cmd
}

func printSheet(w io.Writer, s *spreadsheet.Sheet, mode string, pretty bool) error {
	if pretty {
		_, err := io.WriteString(w, renderTable(s, mode))
		return err
	}

	var err error
	if mode == config.ModeTexts {
		err = s.PrintTexts(w)
	} else {
		err = s.PrintValues(w)
	}
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}
	return nil
}
