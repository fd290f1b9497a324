package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"itemcam/internal/app"
	"itemcam/internal/config"
	"itemcam/internal/repository"
)

// Version is the application version.
const Version = "0.1.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:     "itemctl",
	Short:   "Operate the item recognition camera: serve, capture, records and presets",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
	SilenceUsage: true,
}

func main() {
	// Ctrl+C or SIGTERM cancels the command's context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(store repository.Store) error) error {
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.DBDriver, err)
	}
	defer store.Close()
	return fn(store)
}
