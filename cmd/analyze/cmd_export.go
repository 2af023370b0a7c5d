package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"roleplay-insights-go/internal/actionable"
	"roleplay-insights-go/internal/dataset"
	"roleplay-insights-go/internal/scoring"
	"roleplay-insights-go/internal/types"
)

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [session-id...]",
		Short: "Write the latest analysis of sessions to an xlsx report",
		Long: `Write the latest analysis record of each session to an xlsx report,
with a summary sheet across all exported sessions. Without arguments every
analysed session is exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, log, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := args
			if len(ids) == 0 {
				if ids, err = a.Store.ListSessionIDs(ctx); err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
			}

			records := make([]types.AnalysisRecord, 0, len(ids))
			for _, id := range ids {
				rec, found, err := a.Merger.Latest(ctx, id)
				if err != nil {
					return fmt.Errorf("read %s: %w", id, err)
				}
				if !found {
					log.WithField("session_id", id).Warn("no analysis record, skipping")
					continue
				}
				records = append(records, rec)
			}

			sum := scoring.Aggregate(records)
			if err := dataset.WriteReport(out, records, sum, actionable.ForSummary(sum)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sessions to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "analysis-report.xlsx", "Report path")

	return cmd
}
