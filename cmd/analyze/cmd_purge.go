package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired analysis records and statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Store.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d rows\n", n)
			return nil
		},
	}
}
