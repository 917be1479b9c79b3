package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/bidintake/internal/intake"
)

var launchBackground bool

var launchCmd = &cobra.Command{
	Use:   "launch <project-id> <zip-path>",
	Short: "Launch an intake run for a bid package archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initIntake(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Service.Launch(ctx, intake.LaunchRequest{
			ProjectID:  args[0],
			ZipPath:    args[1],
			Background: launchBackground,
		})
		if err != nil {
			return err
		}

		if launchBackground {
			// The CLI process owns the workers, so wait them out and report
			// the terminal state instead of exiting mid-run.
			env.Service.Wait()
			summary, err = env.Service.GetStatus(ctx, summary.RunID)
			if err != nil {
				return err
			}
		}

		formatRunSummary(os.Stdout, summary)
		return nil
	},
}

func init() {
	launchCmd.Flags().BoolVar(&launchBackground, "background", false, "schedule processing on the worker pool")
	rootCmd.AddCommand(launchCmd)
}
