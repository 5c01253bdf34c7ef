package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marketconnect/catfart-gpt/app/app"
	"github.com/marketconnect/catfart-gpt/app/internal/config"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat service",
		Long: `Run the HTTP service that serves the chat page, the JSON API and the
reaction feed. Configuration comes from the environment, an optional .env
file and the file named by CONFIG_FILE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(false)
			cfg := config.GetConfig()
			setupLogger(cfg.IsDebug)

			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create dependencies: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("Error closing application", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
}
