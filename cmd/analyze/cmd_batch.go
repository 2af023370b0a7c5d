package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"roleplay-insights-go/internal/dataset"
)

func newBatchCommand() *cobra.Command {
	var (
		file     string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every session listed in an xlsx workbook",
		Long: `Analyze every session listed in an xlsx workbook.

The first sheet needs "Session ID" and "User ID" columns and may carry a
"Language" column. A failing session does not stop the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", parallel)
			}
			reqs, err := dataset.LoadTriggers(file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, log, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var ok, failed atomic.Int32
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for _, req := range reqs {
				g.Go(func() error {
					if gctx.Err() != nil {
						return nil
					}
					if _, err := a.Processor.RunSync(context.WithoutCancel(gctx), req); err != nil {
						failed.Add(1)
						log.WithSession(req.SessionID, req.UserID).WithError(err).Warn("session analysis failed")
						return nil
					}
					ok.Add(1)
					return nil
				})
			}
			_ = g.Wait()

			fmt.Fprintf(cmd.OutOrStdout(), "analyzed %d sessions, %d failed\n", ok.Load(), failed.Load())
			if failed.Load() > 0 {
				return fmt.Errorf("%d of %d sessions failed", failed.Load(), len(reqs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "triggers.xlsx", "Workbook with the sessions to analyze")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 2, "Sessions analyzed at the same time")

	return cmd
}
