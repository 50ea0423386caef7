// Package main runs the pull-mode task worker.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angadjosan/Claimd/internal/analysis"
	"github.com/angadjosan/Claimd/internal/assignment"
	"github.com/angadjosan/Claimd/internal/config"
	"github.com/angadjosan/Claimd/internal/db"
	"github.com/angadjosan/Claimd/internal/llm"
	"github.com/angadjosan/Claimd/internal/metrics"
	"github.com/angadjosan/Claimd/internal/storage"
	"github.com/angadjosan/Claimd/internal/worker"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Info("starting claimd-worker",
		"worker_id", cfg.WorkerID,
		"poll_interval", cfg.PollInterval,
		"llm_provider", cfg.LLMProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	cancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := dbClient.InitSchema(context.Background()); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	if *wipeDB {
		if err := dbClient.WipeData(context.Background()); err != nil {
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		logger.Warn("database wiped")
	}

	blobs, err := storage.NewObjectStore(context.Background(), cfg.AWSRegion, cfg.S3Endpoint)
	if err != nil {
		logger.Error("failed to create object store", "error", err)
		os.Exit(1)
	}

	model, err := llm.NewModel(cfg)
	if err != nil {
		logger.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}

	retry := analysis.RetryPolicy{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	extractor := analysis.NewExtractor(model, cfg.LLMMaxTokens, retry, logger)
	reasoner := analysis.NewReasoner(model, cfg.LLMMaxTokens, retry, logger)
	engine := assignment.NewEngine(dbClient, cfg.DemoCaseworkerID, logger)

	collector := metrics.NewCollector()
	dbClient.SetCollector(collector)
	dispatcher := worker.NewDispatcher(dbClient, dbClient, blobs, extractor, reasoner, engine, collector, logger)
	loop := worker.NewLoop(dbClient, dispatcher, cfg.PollInterval, collector, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loop.Run(runCtx); err != nil {
		logger.Error("worker loop error", "error", err)
		os.Exit(1)
	}

	snap := collector.Snapshot()
	logger.Info("claimd-worker stopped",
		"uptime_s", int64(snap.UptimeSeconds),
		"tasks_claimed", snap.TasksClaimed,
		"tasks_completed", snap.TasksCompleted,
		"tasks_failed", snap.TasksFailed)
}
