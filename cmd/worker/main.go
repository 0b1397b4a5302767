package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/app"
	"github.com/ItaloOlivier/ayonne-sub000/internal/config"
	"github.com/ItaloOlivier/ayonne-sub000/internal/logging"
	"github.com/ItaloOlivier/ayonne-sub000/internal/queue"
	"github.com/ItaloOlivier/ayonne-sub000/internal/storage"
	"github.com/ItaloOlivier/ayonne-sub000/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.Server.LogLevel)
	log := logging.Component("worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe, err := app.Build(cfg, log)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	db, err := storage.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.WithError(err).Warn("Database unavailable, running without archival")
	} else {
		defer db.Close()
		pipe.Orchestrator.SetArchiver(storage.NewArchive(db))
	}

	q, err := queue.NewRedisQueue(&cfg.Redis, &cfg.Worker)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running schedule only")
		q = nil
	} else {
		defer q.Close()
	}

	w := worker.New(
		q,
		pipe.Router,
		pipe.Orchestrator,
		cfg.Loop.Interval,
		cfg.Worker.Concurrency,
		cfg.Worker.BatchSize,
		log,
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down worker...")
		cancel()
	}()

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Worker error: %v", err)
	}

	log.Info("Worker stopped")
}
