package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/angadjosan/Claimd/internal/metrics"
)

// Loop pulls tasks from the queue one at a time. Claim failures and handler
// failures are logged and followed by the poll backoff; the loop only exits
// when its context is cancelled.
type Loop struct {
	queue        Queue
	dispatcher   *Dispatcher
	pollInterval time.Duration
	collector    *metrics.Collector
	logger       *slog.Logger
}

// NewLoop creates a pull loop over the given queue and dispatcher.
func NewLoop(queue Queue, dispatcher *Dispatcher, pollInterval time.Duration, collector *metrics.Collector, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Loop{
		queue:        queue,
		dispatcher:   dispatcher,
		pollInterval: pollInterval,
		collector:    collector,
		logger:       logger,
	}
}

// Run polls until ctx is cancelled. Returns nil on cancellation; the loop
// never exits on an operational error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("worker loop started", "poll_interval", l.pollInterval)

	for {
		if ctx.Err() != nil {
			l.logger.Info("worker loop stopped")
			return nil
		}

		task, err := l.queue.ClaimNextTask(ctx)
		if err != nil {
			l.logger.Error("claim next task", "error", err)
			if !l.sleep(ctx) {
				return nil
			}
			continue
		}

		if task == nil {
			if !l.sleep(ctx) {
				return nil
			}
			continue
		}

		l.collector.RecordTaskClaimed()

		// Process records the terminal status itself; the error is only
		// informational here and must not stop the loop.
		_ = l.dispatcher.Process(ctx, task)
	}
}

// sleep waits one poll interval, returning false if ctx was cancelled.
func (l *Loop) sleep(ctx context.Context) bool {
	select {
	case <-time.After(l.pollInterval):
		return true
	case <-ctx.Done():
		l.logger.Info("worker loop stopped")
		return false
	}
}
