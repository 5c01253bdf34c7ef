// Package command defines the catfart CLI.
package command

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const AppName = "catfart"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd(version string) *cobra.Command {
	serve := NewServeCmd()

	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "CatFart GPT - a chat client with a token-hungry cat",
		Long:          "Serves a chat page backed by the OpenAI chat API. A cartoon cat reacts to the session's token usage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv()
		},
		RunE: serve.RunE,
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.AddCommand(serve, NewRenderCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}

// loadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
