package cli

import (
	"context"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vogtb/go-spreadsheet/internal/config"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version. It is
// called by main with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the sheet CLI and returns an error if any command fails.
//
// Logging defaults to the level from sheet.toml (info if unset); --verbose
// forces debug level.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Output goes to the command's
// configured writers, so tests can capture it with SetOut and SetErr.
func NewRootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "sheet",
		Short:        "Sheet replays cell edits against an in-memory spreadsheet",
		Long:         `Sheet applies a script of cell edits to an in-memory spreadsheet, keeping formulas up to date and rejecting circular references, then prints the grid or exports its dependency graph.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			level := cfg.LogLevel()
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("sheet %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ./"+config.DefaultFile+" if present)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newGraphCmd())

	return root
}
