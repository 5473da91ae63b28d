// Package cli implements the calsync command tree: sync (one run),
// calendars (discovery) and daemon (scheduled runs). Commands translate
// configuration plus flags into engine runs; all policy lives below them.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type rootOptions struct {
	configPath string
	verbose    bool
	format     string
}

// NewRootCommand builds the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "calsync",
		Short: "Mirror events from read-only calendars into writable ones",
		Long: `calsync periodically mirrors events from read-only source calendars
(ICS subscriptions) into writable destination calendars. Mirrored events
are tagged so later runs can update or remove them; untagged events in
the destination are never touched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatText && opts.format != formatJSON {
				return NewExitError(ExitCommandError,
					fmt.Errorf("invalid format %q (expected %q or %q)", opts.format, formatText, formatJSON))
			}
			setupLogging(opts.verbose)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "calsync.yaml", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "output format (text or json)")

	cmd.AddCommand(
		newSyncCommand(opts),
		newCalendarsCommand(opts),
		newDaemonCommand(opts),
	)
	return cmd
}

// setupLogging installs the process-wide slog handler. Logs go to stderr so
// stdout stays clean for the report.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
