package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/api"
	"github.com/ItaloOlivier/ayonne-sub000/internal/app"
	"github.com/ItaloOlivier/ayonne-sub000/internal/config"
	"github.com/ItaloOlivier/ayonne-sub000/internal/logging"
	"github.com/ItaloOlivier/ayonne-sub000/internal/queue"
	"github.com/ItaloOlivier/ayonne-sub000/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.Server.LogLevel)
	log := logging.Component("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe, err := app.Build(cfg, log)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	var archive *storage.Archive
	db, err := storage.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.WithError(err).Warn("Database unavailable, running without archival")
	} else {
		defer db.Close()
		archive = storage.NewArchive(db)
		pipe.Orchestrator.SetArchiver(archive)
	}

	q, err := queue.NewRedisQueue(&cfg.Redis, &cfg.Worker)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, async message delivery disabled")
		q = nil
	} else {
		defer q.Close()
	}

	router := api.NewRouter(api.Deps{
		Orchestrator: pipe.Orchestrator,
		Protocol:     pipe.Router,
		Governance:   pipe.Governance,
		Experiments:  pipe.Experiments,
		Archive:      archive,
		Queue:        q,
		Meta:         pipe.Meta,
		Log:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr()).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Info("Server stopped")
}
