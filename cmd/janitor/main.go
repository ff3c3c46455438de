package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fileworks/fileworks/internal/config"
	"github.com/fileworks/fileworks/internal/janitor"
	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/storage"
)

var (
	runOnce  bool
	interval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Retention janitor - deletes stored files past their retention age",
	Long: `janitor sweeps the file store and deletes uploads and processed
artifacts older than RETENTION_AGE. Job records are never touched.

Run continuously (the default) or once with --once.`,
	RunE:          runJanitor,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "sweep once and exit")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "override RETENTION_INTERVAL between sweeps")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("janitor failed", "error", err)
		os.Exit(1)
	}
}

func runJanitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()

	sweepInterval := cfg.RetentionInterval
	if interval > 0 {
		sweepInterval = interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info("storage ready", "backend", cfg.StorageBackend)

	j := janitor.New(st, cfg.RetentionAge, sweepInterval)

	if runOnce {
		start := time.Now()
		stats, err := j.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		log.Info("sweep complete",
			"scanned", stats.Scanned,
			"deleted", stats.Deleted,
			"errors", stats.Errors,
			"duration", time.Since(start),
		)
		return nil
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	log.Info("janitor running", "retention_age", cfg.RetentionAge, "interval", sweepInterval)
	if err := j.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	log.Info("janitor stopped")
	return nil
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageBackend == "minio" {
		st, err := storage.NewMinIOStorage(&storage.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			Region:    cfg.MinIORegion,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio storage: %w", err)
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return st, nil
	}
	return storage.NewLocalStorage(cfg.StorageRoot)
}
