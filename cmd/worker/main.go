package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendant/simple-media/pkg/simplemedia/config"
	"github.com/tendant/simple-media/pkg/simplemedia/processor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := cfg.BuildRepository(ctx)
	if err != nil {
		logger.Error("failed to build repository", "error", err)
		os.Exit(1)
	}
	store, err := cfg.BuildBlobStore()
	if err != nil {
		logger.Error("failed to build blob store", "error", err)
		os.Exit(1)
	}
	queue, err := cfg.BuildQueue(ctx)
	if err != nil {
		logger.Error("failed to build queue", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	proc := processor.NewProcessor(repo, store, logger)
	worker := processor.NewWorker(queue, proc, logger, cfg.WorkerConfig())

	logger.Info("media worker starting",
		"concurrency", cfg.Workers,
		"max_attempts", cfg.MaxAttempts)

	if err := worker.Run(ctx); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("worker exiting")
}
