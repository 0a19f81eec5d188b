// Command storyctl administers stored stories directly against the
// configured storage backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/gamemaster-agent/internal/config"
	"github.com/jwebster45206/gamemaster-agent/internal/logger"
	"github.com/jwebster45206/gamemaster-agent/internal/storage"
	pkgstorage "github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

var (
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "storyctl",
	Short: "Game master story administration",
	Long: `storyctl lists, inspects, exports and deletes stories in the configured
storage backend, queues requests for the workers, and checks prompt packs.
Configuration is read from the same environment as the API and worker.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(validatePromptsCmd)
}

func loadConfig() (*config.Config, *slog.Logger) {
	cfg := config.Load()
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	} else {
		cfg.LogLevel = slog.LevelWarn
	}
	return cfg, logger.New(os.Stderr, cfg)
}

// openStorage connects to the configured backend. The caller closes it.
func openStorage(ctx context.Context) (pkgstorage.Storage, error) {
	cfg, log := loadConfig()
	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageBackend, err)
	}
	return store, nil
}
