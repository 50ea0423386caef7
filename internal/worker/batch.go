package worker

import (
	"context"
	"log/slog"

	"github.com/angadjosan/Claimd/internal/models"
)

// ItemFailure records one failed task inside a batch.
type ItemFailure struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// BatchReport summarizes a batch run. A failed item never aborts the batch;
// the remaining items still run.
type BatchReport struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// BatchHandler processes pre-delivered tasks sequentially through the same
// dispatcher the pull loop uses.
type BatchHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewBatchHandler creates a batch entry point over the dispatcher.
func NewBatchHandler(dispatcher *Dispatcher, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{dispatcher: dispatcher, logger: logger}
}

// Handle runs every task in the batch and reports per-item outcomes.
func (h *BatchHandler) Handle(ctx context.Context, tasks []*models.Task) BatchReport {
	report := BatchReport{Processed: len(tasks)}

	for _, task := range tasks {
		if err := h.dispatcher.Process(ctx, task); err != nil {
			report.Failures = append(report.Failures, ItemFailure{
				TaskID: models.RecordIDText(task.ID),
				Error:  err.Error(),
			})
			continue
		}
		report.Succeeded++
	}

	if len(report.Failures) > 0 {
		h.logger.Warn("batch completed with failures",
			"processed", report.Processed,
			"succeeded", report.Succeeded,
			"failed", len(report.Failures))
	} else {
		h.logger.Info("batch completed", "processed", report.Processed)
	}
	return report
}
