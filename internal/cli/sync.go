package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"calsync/internal/engine"
)

type syncOptions struct {
	source          string
	dest            string
	days            int
	excludeDeclined bool
	excludeAllDay   bool
	excludeTitles   string
	forceRefresh    bool
}

func newSyncCommand(root *rootOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync (or list filtered source events)",
		Long: `Sync runs the pipeline once: fetch source events inside the window,
apply filters, and reconcile them against the destination calendar.
Without --dest it only lists what would be mirrored.

Individual event failures are reported in the summary but do not fail
the command; a non-zero exit means the run could not start at all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source calendar name (required)")
	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "destination calendar name (omit to list only)")
	cmd.Flags().IntVarP(&opts.days, "days", "n", 7, "window size in days from today")
	cmd.Flags().BoolVar(&opts.excludeDeclined, "exclude-declined", false, "skip events you have declined")
	cmd.Flags().BoolVar(&opts.excludeAllDay, "exclude-all-day", false, "skip all-day events")
	cmd.Flags().StringVar(&opts.excludeTitles, "exclude-title", "", "comma-separated title substrings to skip")
	cmd.Flags().BoolVar(&opts.forceRefresh, "force-refresh", false, "bypass the feed cache before querying")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runSync(cmd *cobra.Command, root *rootOptions, opts *syncOptions) error {
	a, err := loadApp(root)
	if err != nil {
		return NewExitError(ExitFailure, err)
	}

	sum, err := a.runner.Run(cmd.Context(), engine.Options{
		Source:       opts.source,
		Destination:  opts.dest,
		Days:         opts.days,
		ForceRefresh: opts.forceRefresh,
		Filter: engine.FilterOptions{
			ExcludeDeclined:      opts.excludeDeclined,
			ExcludeAllDay:        opts.excludeAllDay,
			ExcludeTitlePatterns: splitPatterns(opts.excludeTitles),
		},
	})
	if err != nil {
		return NewExitError(ExitFailure, err)
	}

	return writeSummary(cmd, root.format, sum)
}

func writeSummary(cmd *cobra.Command, format string, sum *engine.Summary) error {
	if format == formatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return NewExitError(ExitFailure, err)
		}
		return nil
	}
	if err := sum.Render(cmd.OutOrStdout()); err != nil {
		return NewExitError(ExitFailure, err)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d event(s) failed to apply\n", sum.Failed)
	}
	return nil
}

// splitPatterns turns a comma-separated flag value into trimmed, non-empty
// patterns.
func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
