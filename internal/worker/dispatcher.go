// Package worker claims queued tasks and routes them through the analysis
// pipeline and the assignment engine.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/angadjosan/Claimd/internal/analysis"
	"github.com/angadjosan/Claimd/internal/assignment"
	"github.com/angadjosan/Claimd/internal/llm"
	"github.com/angadjosan/Claimd/internal/metrics"
	"github.com/angadjosan/Claimd/internal/models"
)

// Queue is the task-queue surface the dispatcher needs.
type Queue interface {
	ClaimNextTask(ctx context.Context) (*models.Task, error)
	EnqueueTask(ctx context.Context, taskType models.TaskType, applicationID string, payload map[string]any) (*models.Task, error)
	MarkTaskCompleted(ctx context.Context, taskID string, result map[string]any) error
	MarkTaskFailed(ctx context.Context, taskID, errorMessage string) error
}

// DocumentStore is the application-record surface the dispatcher needs.
type DocumentStore interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListApplicationFiles(ctx context.Context, applicationID string) ([]models.ApplicationFile, error)
	UpdateApplicationReasoning(ctx context.Context, id string, fields map[string]any) error
}

// BlobStore fetches uploaded document bytes.
type BlobStore interface {
	Download(ctx context.Context, bucket, path string) ([]byte, error)
}

// ExtractionStage runs the document-extraction half of the pipeline.
type ExtractionStage interface {
	Extract(ctx context.Context, docs []llm.Document) (map[string]any, error)
}

// ReasoningStage runs the eligibility-reasoning half of the pipeline.
type ReasoningStage interface {
	Reason(ctx context.Context, app *models.Application, extracted map[string]any) (*analysis.ReasoningResult, error)
}

// Assigner links applications to caseworkers.
type Assigner interface {
	Assign(ctx context.Context, applicationID string) (assignment.Result, error)
}

// Dispatcher routes one claimed task to its handler and records the terminal
// status back on the task row.
type Dispatcher struct {
	queue     Queue
	store     DocumentStore
	blobs     BlobStore
	extractor ExtractionStage
	reasoner  ReasoningStage
	assigner  Assigner
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewDispatcher wires the dispatcher's collaborators.
func NewDispatcher(queue Queue, store DocumentStore, blobs BlobStore, extractor ExtractionStage, reasoner ReasoningStage, assigner Assigner, collector *metrics.Collector, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Dispatcher{
		queue:     queue,
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		reasoner:  reasoner,
		assigner:  assigner,
		collector: collector,
		logger:    logger,
	}
}

// Process runs one claimed task to a terminal state. Handler failures mark the
// task failed and are returned for batch reporting; failures to record the
// terminal status are logged but never crash the caller's loop.
func (d *Dispatcher) Process(ctx context.Context, task *models.Task) error {
	taskID := models.RecordIDText(task.ID)
	logger := d.logger.With("task_id", taskID, "task_type", task.TaskType)

	start := time.Now()
	result, err := d.route(ctx, logger, task)
	duration := time.Since(start)

	if err != nil {
		d.collector.RecordFailure(metrics.OpTaskProcess)
		d.collector.RecordTaskFailed()
		logger.Error("task failed", "duration_ms", duration.Milliseconds(), "error", err)

		if markErr := d.queue.MarkTaskFailed(ctx, taskID, err.Error()); markErr != nil {
			logger.Error("mark task failed", "error", markErr)
		}
		return err
	}

	d.collector.RecordTiming(metrics.OpTaskProcess, duration)
	d.collector.RecordTaskCompleted()
	logger.Info("task completed", "duration_ms", duration.Milliseconds())

	if markErr := d.queue.MarkTaskCompleted(ctx, taskID, result); markErr != nil {
		logger.Error("mark task completed", "error", markErr)
	}

	// An ai task's success fans out the follow-on assignment work. The
	// reasoning output is already durable at this point.
	if task.TaskType == models.TaskTypeAI {
		appID := applicationID(task)
		if _, err := d.queue.EnqueueTask(ctx, models.TaskTypeOrchestration, appID, nil); err != nil {
			logger.Error("enqueue orchestration task", "application_id", appID, "error", err)
		} else {
			logger.Info("orchestration task enqueued", "application_id", appID)
		}
	}
	return nil
}

func (d *Dispatcher) route(ctx context.Context, logger *slog.Logger, task *models.Task) (map[string]any, error) {
	switch task.TaskType {
	case models.TaskTypeAI:
		return d.handleAI(ctx, logger, task)
	case models.TaskTypeOrchestration:
		return d.handleOrchestration(ctx, task)
	case models.TaskTypeFailTest:
		return nil, fmt.Errorf("task type %s always fails", models.TaskTypeFailTest)
	default:
		// Unknown types are completed, not failed, so a newer producer
		// can't wedge an older worker's queue.
		logger.Warn("unknown task type")
		return map[string]any{"status": "unknown_task_type"}, nil
	}
}

// handleAI runs the two-stage pipeline: extract structured data from the
// uploaded documents (skipped when there are none), reason over application
// plus extraction, and persist the reasoning onto the application record.
func (d *Dispatcher) handleAI(ctx context.Context, logger *slog.Logger, task *models.Task) (map[string]any, error) {
	appID := applicationID(task)
	if appID == "" {
		return nil, fmt.Errorf("ai task missing application_id")
	}

	app, err := d.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	docs, err := d.fetchDocuments(ctx, appID)
	if err != nil {
		return nil, err
	}

	var extracted map[string]any
	if len(docs) > 0 {
		start := time.Now()
		extracted, err = d.extractor.Extract(ctx, docs)
		if err != nil {
			d.collector.RecordFailure(metrics.OpLLMExtract)
			return nil, err
		}
		d.collector.RecordTiming(metrics.OpLLMExtract, time.Since(start))
	} else {
		logger.Info("no documents uploaded, skipping extraction", "application_id", appID)
	}

	start := time.Now()
	reasoning, err := d.reasoner.Reason(ctx, app, extracted)
	if err != nil {
		d.collector.RecordFailure(metrics.OpLLMReason)
		return nil, err
	}
	d.collector.RecordTiming(metrics.OpLLMReason, time.Since(start))

	if err := d.store.UpdateApplicationReasoning(ctx, appID, reasoningFields(reasoning)); err != nil {
		return nil, err
	}

	return map[string]any{
		"status":                 "success",
		"overall_recommendation": reasoning.OverallRecommendation,
		"confidence_score":       reasoning.ConfidenceScore,
		"documents_processed":    len(docs),
		"has_extraction_output":  extracted != nil,
	}, nil
}

func (d *Dispatcher) handleOrchestration(ctx context.Context, task *models.Task) (map[string]any, error) {
	appID := applicationID(task)
	if appID == "" {
		return nil, fmt.Errorf("orchestration task missing application_id")
	}

	start := time.Now()
	result, err := d.assigner.Assign(ctx, appID)
	if err != nil {
		d.collector.RecordFailure(metrics.OpAssignment)
		return nil, err
	}
	d.collector.RecordTiming(metrics.OpAssignment, time.Since(start))

	out := map[string]any{"outcome": string(result.Outcome)}
	if result.CaseworkerID != "" {
		out["caseworker_id"] = result.CaseworkerID
	}
	if result.Reason != "" {
		out["reason"] = result.Reason
	}
	return out, nil
}

// fetchDocuments downloads every attached file, oldest upload first.
func (d *Dispatcher) fetchDocuments(ctx context.Context, appID string) ([]llm.Document, error) {
	files, err := d.store.ListApplicationFiles(ctx, appID)
	if err != nil {
		return nil, err
	}

	docs := make([]llm.Document, 0, len(files))
	for _, file := range files {
		data, err := d.blobs.Download(ctx, file.StorageBucket, file.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("download %s/%s: %w", file.StorageBucket, file.StoragePath, err)
		}
		docs = append(docs, llm.Document{Data: data, MediaType: file.ContentType})
	}
	return docs, nil
}

// applicationID resolves the task's target application from the dedicated
// column, falling back to the payload for rows written by older producers.
func applicationID(task *models.Task) string {
	if task.ApplicationID != "" {
		return task.ApplicationID
	}
	if task.Payload != nil {
		if id, ok := task.Payload["application_id"].(string); ok {
			return id
		}
	}
	return ""
}

// reasoningFields maps the pipeline output onto application record columns.
func reasoningFields(r *analysis.ReasoningResult) map[string]any {
	fields := map[string]any{
		"reasoning_overall_recommendation": r.OverallRecommendation,
		"reasoning_confidence_score":       r.ConfidenceScore,
		"reasoning_summary":                r.Summary,
		"reasoning_phases":                 r.Phases,
		"reasoning_missing_information":    r.MissingInformation,
		"reasoning_suggested_actions":      r.SuggestedActions,
	}
	return fields
}
