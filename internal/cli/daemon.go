package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"calsync/internal/daemon"
)

func newDaemonCommand(root *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run configured sync jobs on their cron schedules",
		Long: `Daemon registers every job from the configuration file with a cron
scheduler and runs until interrupted. With --once each job is run a
single time, in configuration order, and the process exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(root)
			if err != nil {
				return NewExitError(ExitFailure, err)
			}
			if len(a.cfg.Jobs) == 0 {
				return NewExitError(ExitFailure,
					fmt.Errorf("no jobs configured in %s", root.configPath))
			}

			defaultTimeout := time.Duration(a.cfg.Scheduler.DefaultTimeoutSeconds) * time.Second
			sched := daemon.New(a.runner, a.loc, defaultTimeout)
			for _, job := range a.cfg.Jobs {
				if err := sched.AddJob(job); err != nil {
					return NewExitError(ExitFailure, err)
				}
			}

			if once {
				sched.RunAllOnce(cmd.Context())
				return nil
			}
			sched.Run(cmd.Context())
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run every job once and exit")
	return cmd
}
