// Package main runs the batch-mode worker fed by Kafka task notifications.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angadjosan/Claimd/internal/analysis"
	"github.com/angadjosan/Claimd/internal/assignment"
	"github.com/angadjosan/Claimd/internal/bus"
	"github.com/angadjosan/Claimd/internal/config"
	"github.com/angadjosan/Claimd/internal/db"
	"github.com/angadjosan/Claimd/internal/llm"
	"github.com/angadjosan/Claimd/internal/metrics"
	"github.com/angadjosan/Claimd/internal/models"
	"github.com/angadjosan/Claimd/internal/storage"
	"github.com/angadjosan/Claimd/internal/worker"
)

// gatherWindow bounds how long we wait for additional messages after the
// first one before processing the batch.
const gatherWindow = time.Second

// taskSource reads task notifications from the message bus.
type taskSource interface {
	ReadTask(ctx context.Context) (bus.TaskMessage, func(context.Context) error, error)
}

// taskClaimer claims a notified task if it is still pending.
type taskClaimer interface {
	ClaimTask(ctx context.Context, taskID string) (*models.Task, error)
}

func main() {
	batchSize := flag.Int("batch-size", 10, "maximum tasks per batch")
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

	logger.Info("starting claimd-batch",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"group", cfg.KafkaGroupID,
		"batch_size", *batchSize)

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
	handler := worker.NewBatchHandler(dispatcher, logger)

	consumer := bus.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close consumer", "error", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run(runCtx, logger, consumer, dbClient, handler, *batchSize)

	snap := collector.Snapshot()
	logger.Info("claimd-batch stopped",
		"uptime_s", int64(snap.UptimeSeconds),
		"tasks_completed", snap.TasksCompleted,
		"tasks_failed", snap.TasksFailed)
}

// run consumes notifications until ctx is cancelled: block on the first
// message, gather more for a short window up to batchSize, process the batch,
// then commit every gathered message. Offsets are only committed after the
// batch ran, so a crash mid-batch redelivers the uncommitted messages.
func run(ctx context.Context, logger *slog.Logger, source taskSource, claimer taskClaimer, handler *worker.BatchHandler, batchSize int) {
	for {
		if ctx.Err() != nil {
			return
		}

		tasks, commits := gather(ctx, logger, source, claimer, batchSize)
		if len(tasks) > 0 {
			report := handler.Handle(ctx, tasks)
			logger.Info("batch report",
				"processed", report.Processed,
				"succeeded", report.Succeeded,
				"failed", len(report.Failures))
		}

		for _, commit := range commits {
			if err := commit(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("commit message", "error", err)
			}
		}
	}
}

// gather blocks for the first notification and then drains up to batchSize
// within the gather window. Each notified task is claimed by id before it
// enters the batch, so a pull-mode worker racing on the same row loses
// cleanly. Messages whose task is gone or already taken are dropped but still
// committed; a message whose claim fails on infrastructure stays uncommitted
// so the bus redelivers it.
func gather(ctx context.Context, logger *slog.Logger, source taskSource, claimer taskClaimer, batchSize int) ([]*models.Task, []func(context.Context) error) {
	var tasks []*models.Task
	var commits []func(context.Context) error

	readCtx := ctx
	var cancel context.CancelFunc

	for len(tasks) < batchSize {
		msg, commit, err := source.ReadTask(readCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			logger.Error("read task message", "error", err)
			break
		}

		// After the first message, stop blocking indefinitely.
		if cancel == nil {
			readCtx, cancel = context.WithTimeout(ctx, gatherWindow)
		}

		task, err := claimer.ClaimTask(ctx, msg.TaskID)
		if err != nil {
			// Not committed; the task row is untouched and the message
			// comes back on the next poll.
			logger.Error("claim notified task", "task_id", msg.TaskID, "error", err)
			break
		}
		commits = append(commits, commit)
		if task == nil {
			logger.Info("notified task missing or already handled", "task_id", msg.TaskID)
			continue
		}
		tasks = append(tasks, task)
	}
	if cancel != nil {
		cancel()
	}
	return tasks, commits
}
