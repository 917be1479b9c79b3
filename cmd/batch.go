package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bidintake/internal/intake"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <project-id> <zip-dir>",
	Short: "Launch intake runs for every archive in a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initIntake(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		projectID := args[0]
		archives, err := filepath.Glob(filepath.Join(args[1], "*.zip"))
		if err != nil {
			return eris.Wrap(err, "glob archives")
		}
		if len(archives) == 0 {
			fmt.Fprintln(os.Stderr, "No .zip archives found.")
			return nil
		}

		var launched, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for _, zipPath := range archives {
			g.Go(func() error {
				summary, err := env.Service.Launch(gctx, intake.LaunchRequest{
					ProjectID: projectID,
					ZipPath:   zipPath,
				})
				if err != nil {
					failed.Add(1)
					zap.L().Error("batch launch failed",
						zap.String("zip", zipPath), zap.Error(err))
					return nil
				}
				launched.Add(1)
				zap.L().Info("batch launch complete",
					zap.String("zip", zipPath),
					zap.String("run_id", summary.RunID),
					zap.String("status", string(summary.Status)))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Batch done: %d launched, %d failed of %d archives\n",
			launched.Load(), failed.Load(), len(archives))
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "max concurrent launches")
	rootCmd.AddCommand(batchCmd)
}
