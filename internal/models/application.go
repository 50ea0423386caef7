package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ApplicationStatus represents the submission state of a benefit application.
type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "draft"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
)

// Application is a disability benefit submission.
// The reasoning_* fields are written by the analysis pipeline; re-running an
// analysis overwrites them.
type Application struct {
	ID            surrealmodels.RecordID `json:"id"`
	ApplicantID   string                 `json:"applicant_id"`
	Status        ApplicationStatus      `json:"status"`
	DemoSessionID *string                `json:"demo_session_id,omitempty"`
	SubmittedAt   *time.Time             `json:"submitted_at,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`

	ReasoningOverallRecommendation *string        `json:"reasoning_overall_recommendation,omitempty"`
	ReasoningConfidenceScore       *float64       `json:"reasoning_confidence_score,omitempty"`
	ReasoningSummary               *string        `json:"reasoning_summary,omitempty"`
	ReasoningPhases                map[string]any `json:"reasoning_phases,omitempty"`
	ReasoningMissingInformation    []string       `json:"reasoning_missing_information,omitempty"`
	ReasoningSuggestedActions      []string       `json:"reasoning_suggested_actions,omitempty"`
}

// ApplicationFile is the metadata for a document attached to an application.
// The file content itself lives in object storage under Bucket/Path.
type ApplicationFile struct {
	ID            surrealmodels.RecordID `json:"id"`
	ApplicationID string                 `json:"application_id"`
	FileName      string                 `json:"file_name"`
	ContentType   string                 `json:"content_type"`
	StorageBucket string                 `json:"storage_bucket"`
	StoragePath   string                 `json:"storage_path"`
	UploadedAt    time.Time              `json:"uploaded_at"`
}
