package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/scopeworks/kbingest/internal/blobstore"
	"github.com/scopeworks/kbingest/internal/config"
	"github.com/scopeworks/kbingest/internal/database"
	"github.com/scopeworks/kbingest/internal/embedding"
	"github.com/scopeworks/kbingest/internal/ingest"
	"github.com/scopeworks/kbingest/internal/llm"
	"github.com/scopeworks/kbingest/internal/queue"
	"github.com/scopeworks/kbingest/internal/queue/workers"
	"github.com/scopeworks/kbingest/internal/scanlock"
	"github.com/scopeworks/kbingest/internal/store"
	"github.com/scopeworks/kbingest/internal/vectorindex"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	st := store.New(db)
	blobs := blobstore.NewHTTPStore(cfg.Blob)
	index := vectorindex.NewPgIndex(db)
	embedder := embedding.NewService(llm.NewEmbeddingProvider(cfg.Embedding), cfg.Embedding.BatchSize)
	lock := scanlock.New(rdb)
	pipeline := ingest.New(st, blobs, index, embedder, lock, cfg.Pipeline)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Scans are exclusive; one in-flight scan task is enough.
			Concurrency: 1,
		},
	)

	registry := queue.NewHandlersRegistry()
	scanWorker := workers.NewScanWorker(pipeline)
	registry.Register(queue.TypeScanRun, asynq.HandlerFunc(scanWorker.ProcessTask))

	scheduler, err := queue.NewScheduler(cfg.Redis, cfg.Pipeline.ScanInterval)
	if err != nil {
		slog.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}
	if scheduler != nil {
		go func() {
			slog.Info("starting scan scheduler", "interval", cfg.Pipeline.ScanInterval)
			if err := scheduler.Run(); err != nil {
				slog.Error("scheduler error", "error", err)
				os.Exit(1)
			}
		}()
	}

	slog.Info("starting worker")
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
