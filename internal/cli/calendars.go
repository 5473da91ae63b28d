package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars visible to calsync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(root)
			if err != nil {
				return NewExitError(ExitFailure, err)
			}

			names, err := a.store.ListCalendars(cmd.Context())
			if err != nil {
				return NewExitError(ExitFailure, err)
			}

			if root.format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(names)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
