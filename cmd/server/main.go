package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"animetracker/internal/config"
	"animetracker/pkg/logger"
)

var configFiles []string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "animetracker",
		Short:         "Anime watchlist tracker backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "optional config file (json/yaml/toml); env vars take precedence")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newInspectCmd(), newFetchCatalogCmd())
	return root
}

func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	opts := logger.Options{
		ServiceName:  cfg.AppConfig.Name,
		Level:        logger.ParseLevel(cfg.LogConfig.Level),
		BufferSize:   cfg.LogConfig.BufferSize,
		KafkaBrokers: cfg.LogConfig.Brokers(),
		KafkaTopic:   cfg.LogConfig.KafkaTopic,
	}
	if !cfg.LogConfig.DisableFile {
		opts.Dir = cfg.LogConfig.Dir
	}
	return logger.New(opts)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
