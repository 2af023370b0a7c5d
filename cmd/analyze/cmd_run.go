package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"roleplay-insights-go/internal/types"
)

func newRunCommand() *cobra.Command {
	var userID, language string

	cmd := &cobra.Command{
		Use:   "run <session-id>",
		Short: "Analyze one session and print the record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Processor.RunSync(ctx, types.AnalysisRequest{SessionID: args[0], UserID: userID, Language: language})
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Owner of the session (required)")
	cmd.Flags().StringVar(&language, "language", "", "Feedback language (ja or en); defaults to the session language")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
