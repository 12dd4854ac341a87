// Package cli holds the canon command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/canon/internal/app"
	"github.com/MrSnakeDoc/canon/internal/config"
	"github.com/MrSnakeDoc/canon/internal/logger"
	"github.com/MrSnakeDoc/canon/internal/version"
)

// NewRootCommand builds the command tree. Every command reads its settings from
// CANON_* environment variables; flags only select what to act on.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "canon",
		Short:         "Bookmark canonicalization service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newTransferCommand(),
		newImportCommand(),
		newCacheCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		stop()
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("canon failed to start: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}

// withComponents runs fn against a freshly wired object graph and closes it.
func withComponents(cmd *cobra.Command, fn func(*app.Components, logger.Logger) error) error {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	c, err := app.Build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("failed to close connections", logger.Error(err))
		}
	}()

	return fn(c, log)
}
