// Package models defines data structures for the Claimd intake database.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// TaskType identifies the kind of work a queued task carries.
type TaskType string

const (
	TaskTypeAI            TaskType = "ai"
	TaskTypeOrchestration TaskType = "orchestration"
	TaskTypeFailTest      TaskType = "fail_test"
)

// TaskStatus represents the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a persisted unit of queued work.
// Rows are never deleted; completed and failed tasks remain as an audit trail.
type Task struct {
	ID            surrealmodels.RecordID `json:"id"`
	TaskType      TaskType               `json:"task_type"`
	ApplicationID string                 `json:"application_id"`
	Payload       map[string]any         `json:"payload,omitempty"`
	Status        TaskStatus             `json:"status"`
	Attempts      int                    `json:"attempts"`
	LastError     *string                `json:"last_error,omitempty"`
	LockedAt      *time.Time             `json:"locked_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
