package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/broker"
	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fileworks/fileworks/internal/api"
	"github.com/fileworks/fileworks/internal/config"
	"github.com/fileworks/fileworks/internal/jobstore"
	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/metrics"
	"github.com/fileworks/fileworks/internal/storage"
)

type brokerAdapter struct {
	broker *broker.RedisStreamsBroker
}

func (a *brokerAdapter) Enqueue(jobType string, payload interface{}) (string, error) {
	j, err := job.New(jobType, payload)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if err := a.broker.Enqueue(context.Background(), j); err != nil {
		return "", err
	}
	return j.ID, nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()
	log.Info("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("redis connected")

	store, cleanup, err := newJobStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer cleanup()
	log.Info("job store ready", "backend", cfg.JobstoreBackend)

	st, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info("storage ready", "backend", cfg.StorageBackend)

	b := &brokerAdapter{
		broker: broker.NewRedisStreamsBroker(redisClient,
			broker.WithWorkerID(fmt.Sprintf("api-%d", os.Getpid())),
		),
	}
	log.Info("broker initialized")

	metrics.SetAppInfo("1.0.0", cfg.Environment, "api")

	quota := &api.Quota{
		Counter:       &api.RedisCounter{Client: redisClient},
		Limit:         cfg.DailyFreeLimit,
		JWTSecret:     cfg.JWTSecret,
		SecureCookies: cfg.Secure,
	}
	server := api.NewServer(store, metrics.NewInstrumentedStorage(st), b, quota, cfg.BaseURL, cfg.MaxUploadSize)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(server),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("api server starting", "port", cfg.Port)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("error stopping server", "error", err)
		}
	}

	log.Info("api server stopped")
	return nil
}

func newJobStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (jobstore.Store, func(), error) {
	if cfg.JobstoreBackend == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		store := jobstore.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return store, pool.Close, nil
	}
	return jobstore.NewRedisStore(redisClient), func() {}, nil
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
