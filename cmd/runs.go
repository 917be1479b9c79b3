package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bidintake/internal/model"
	"github.com/sells-group/bidintake/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect intake run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initIntake(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		project, _ := cmd.Flags().GetString("project")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := env.Service.ListRuns(ctx, store.RunFilter{
			ProjectID: project,
			Status:    model.RunStatus(status),
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().String("project", "", "filter by project id")
	runsCmd.Flags().String("status", "", "filter by run status")
	runsCmd.Flags().Int("limit", 50, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
