// Package db provides task queue persistence on top of SurrealDB.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/angadjosan/Claimd/internal/models"
)

// claimSQL atomically claims the oldest pending task. The whole statement runs
// in one transaction: the conditional UPDATE re-checks status = 'pending' so a
// row already taken by a concurrent worker is not claimed twice, and a
// transaction conflict means the other worker won.
const claimSQL = `
	BEGIN TRANSACTION;
	LET $next = (SELECT VALUE id FROM task WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1);
	LET $claimed = (UPDATE $next SET
		status = 'processing',
		attempts += 1,
		locked_at = time::now(),
		updated_at = time::now()
	WHERE status = 'pending'
	RETURN AFTER);
	RETURN $claimed;
	COMMIT TRANSACTION;
`

// ClaimNextTask atomically selects the oldest pending task, transitions it to
// processing and returns it. Returns (nil, nil) when the queue is empty or
// when a concurrent worker claimed the row first.
func (c *Client) ClaimNextTask(ctx context.Context) (*models.Task, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, claimSQL, nil)
	if err != nil {
		err = wrapQueryError(err)
		if errors.Is(err, ErrTransactionConflict) {
			// Lost the race; caller treats this like an empty poll.
			return nil, nil
		}
		return nil, fmt.Errorf("claim next task: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	claimed := (*results)[len(*results)-1].Result
	if len(claimed) == 0 {
		return nil, nil
	}
	return &claimed[0], nil
}

// ClaimTask claims the identified task if it is still pending, applying the
// same transition ClaimNextTask does. Returns (nil, nil) when the task is
// missing or another worker already took it, so batch-delivered notifications
// stay safe to process alongside pull-mode workers.
func (c *Client) ClaimTask(ctx context.Context, taskID string) (*models.Task, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, `
		UPDATE type::record("task", $id) SET
			status = 'processing',
			attempts += 1,
			locked_at = time::now(),
			updated_at = time::now()
		WHERE status = 'pending'
		RETURN AFTER
	`, map[string]any{"id": taskID})
	if err != nil {
		err = wrapQueryError(err)
		if errors.Is(err, ErrTransactionConflict) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim task %s: %w", taskID, err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// EnqueueTask inserts a new pending task. Used by the submission flow and for
// follow-on chaining (ai -> orchestration).
func (c *Client) EnqueueTask(ctx context.Context, taskType models.TaskType, applicationID string, payload map[string]any) (*models.Task, error) {
	defer c.observe(time.Now())

	if payload == nil {
		payload = map[string]any{}
	}
	if _, ok := payload["application_id"]; !ok {
		payload["application_id"] = applicationID
	}

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, `
		CREATE type::record("task", $id) CONTENT {
			task_type: $task_type,
			application_id: $application_id,
			payload: $payload,
			status: 'pending',
			attempts: 0,
			created_at: time::now(),
			updated_at: time::now()
		}
	`, map[string]any{
		"id":             uuid.New().String(),
		"task_type":      taskType,
		"application_id": applicationID,
		"payload":        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("enqueue task: no row returned")
	}
	return &(*results)[0].Result[0], nil
}

// MarkTaskCompleted transitions a task to completed, merging the result object
// into the payload under the "result" key rather than replacing the payload.
// A missing row is not an error; the worker loop must stay alive.
func (c *Client) MarkTaskCompleted(ctx context.Context, taskID string, result map[string]any) error {
	defer c.observe(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("task", $id) MERGE {
			status: 'completed',
			updated_at: time::now(),
			payload: { result: $result }
		}
	`, map[string]any{"id": taskID, "result": result})
	if err != nil {
		return fmt.Errorf("mark task completed: %w", wrapQueryError(err))
	}
	return nil
}

// MarkTaskFailed transitions a task to failed, recording the error message.
func (c *Client) MarkTaskFailed(ctx context.Context, taskID, errorMessage string) error {
	defer c.observe(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("task", $id) SET
			status = 'failed',
			last_error = $error,
			updated_at = time::now()
	`, map[string]any{"id": taskID, "error": errorMessage})
	if err != nil {
		return fmt.Errorf("mark task failed: %w", wrapQueryError(err))
	}
	return nil
}

// GetTask retrieves a task by ID. Returns ErrNotFound if it doesn't exist.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, `
		SELECT * FROM type::record("task", $id)
	`, map[string]any{"id": taskID})
	if err != nil {
		return nil, fmt.Errorf("get task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListTasks returns tasks ordered newest first, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, status string, limit int) ([]models.Task, error) {
	defer c.observe(time.Now())

	if limit <= 0 {
		limit = 50
	}

	statusClause := ""
	vars := map[string]any{"limit": limit}
	if status != "" {
		statusClause = "WHERE status = $status"
		vars["status"] = status
	}

	sql := fmt.Sprintf(`
		SELECT * FROM task %s ORDER BY created_at DESC LIMIT $limit
	`, statusClause)

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Task{}, nil
	}
	return (*results)[0].Result, nil
}
