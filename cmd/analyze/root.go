package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"roleplay-insights-go/internal/app"
	"roleplay-insights-go/internal/config"
	"roleplay-insights-go/internal/logger"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze roleplay sessions",
		Long: `analyze runs the session analysis pipeline outside the HTTP service.

Configuration is read from the environment and from a .env file in the
working directory.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newBatchCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newPurgeCommand())

	return cmd
}

// openApp loads configuration and wires the components for one command.
func openApp(ctx context.Context) (*app.App, *logger.Logger, error) {
	_ = godotenv.Load()
	log := logger.New()
	a, err := app.Build(ctx, config.Load(), log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
