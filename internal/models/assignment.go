package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ReviewStatus tracks a caseworker's progress on an assigned application.
type ReviewStatus string

const (
	ReviewStatusUnopened   ReviewStatus = "unopened"
	ReviewStatusInProgress ReviewStatus = "in_progress"
	ReviewStatusCompleted  ReviewStatus = "completed"
)

// Assignment links an application to the caseworker reviewing it.
// The application_id column carries a unique index, so an application can
// have at most one assignment row.
type Assignment struct {
	ID            surrealmodels.RecordID `json:"id"`
	ApplicationID string                 `json:"application_id"`
	ReviewerID    string                 `json:"reviewer_id"`
	ReviewStatus  ReviewStatus           `json:"review_status"`
	Priority      int                    `json:"priority"`
	AssignedBy    *string                `json:"assigned_by,omitempty"` // nil means system-initiated
	AssignedAt    time.Time              `json:"assigned_at"`
}

// Caseworker is a user eligible to review applications.
type Caseworker struct {
	ID                  surrealmodels.RecordID `json:"id"`
	Role                string                 `json:"role"`
	IsActive            bool                   `json:"is_active"`
	CaseworkerAvailable bool                   `json:"caseworker_available"`
}
