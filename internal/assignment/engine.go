// Package assignment load-balances submitted applications across available
// caseworkers.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/angadjosan/Claimd/internal/db"
	"github.com/angadjosan/Claimd/internal/models"
)

// defaultPriority is assigned to system-initiated assignments.
const defaultPriority = 1

// Outcome classifies the result of an assignment attempt. None of these are
// errors; only infrastructure failures surface as errors.
type Outcome string

const (
	OutcomeAssigned        Outcome = "assigned"
	OutcomeAlreadyAssigned Outcome = "already_assigned"
	OutcomeSkipped         Outcome = "skipped"
	OutcomeNoCaseworkers   Outcome = "no_caseworkers_available"
)

// Result describes what the engine did for one application.
type Result struct {
	Outcome      Outcome `json:"outcome"`
	CaseworkerID string  `json:"caseworker_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// Store is the slice of the document store the engine needs.
type Store interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	FindAssignment(ctx context.Context, applicationID string) (*models.Assignment, error)
	CreateAssignment(ctx context.Context, applicationID, reviewerID string, priority int, assignedBy *string) (*models.Assignment, error)
	ListEligibleCaseworkers(ctx context.Context) ([]string, error)
	CountActiveAssignments(ctx context.Context, reviewerID string) (int, error)
}

// Engine assigns submitted applications to the least-loaded available
// caseworker. Demo-session applications bypass load balancing and go to a
// single configured demo caseworker.
type Engine struct {
	store            Store
	demoCaseworkerID string
	logger           *slog.Logger
}

// NewEngine creates an assignment engine. demoCaseworkerID may be empty when
// demo routing is not configured.
func NewEngine(store Store, demoCaseworkerID string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:            store,
		demoCaseworkerID: demoCaseworkerID,
		logger:           logger,
	}
}

// Assign links the application to a caseworker. The operation is idempotent:
// a second call for the same application reports already_assigned. A missing
// application is an error; every other non-success is a structured outcome.
func (e *Engine) Assign(ctx context.Context, applicationID string) (Result, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return Result{}, fmt.Errorf("get application %s: %w", applicationID, err)
	}

	if app.Status != models.ApplicationStatusSubmitted {
		e.logger.Info("assignment skipped", "application_id", applicationID, "status", app.Status)
		return Result{
			Outcome: OutcomeSkipped,
			Reason:  fmt.Sprintf("application status is %s", app.Status),
		}, nil
	}

	existing, err := e.store.FindAssignment(ctx, applicationID)
	if err != nil {
		return Result{}, fmt.Errorf("find assignment for %s: %w", applicationID, err)
	}
	if existing != nil {
		return Result{
			Outcome:      OutcomeAlreadyAssigned,
			CaseworkerID: existing.ReviewerID,
		}, nil
	}

	var reviewerID string
	if app.DemoSessionID != nil {
		if e.demoCaseworkerID == "" {
			e.logger.Error("demo caseworker id not configured", "application_id", applicationID)
			return Result{
				Outcome: OutcomeNoCaseworkers,
				Reason:  "demo caseworker not configured",
			}, nil
		}
		reviewerID = e.demoCaseworkerID
	} else {
		reviewerID, err = e.selectLeastLoaded(ctx)
		if err != nil {
			return Result{}, err
		}
		if reviewerID == "" {
			e.logger.Warn("no eligible caseworkers", "application_id", applicationID)
			return Result{Outcome: OutcomeNoCaseworkers}, nil
		}
	}

	// assigned_by stays null to mark system-initiated assignments.
	_, err = e.store.CreateAssignment(ctx, applicationID, reviewerID, defaultPriority, nil)
	if errors.Is(err, db.ErrAlreadyAssigned) {
		// Lost a race against a concurrent orchestration task.
		return Result{
			Outcome:      OutcomeAlreadyAssigned,
			CaseworkerID: reviewerID,
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("create assignment for %s: %w", applicationID, err)
	}

	e.logger.Info("application assigned", "application_id", applicationID, "caseworker_id", reviewerID)
	return Result{
		Outcome:      OutcomeAssigned,
		CaseworkerID: reviewerID,
	}, nil
}

// selectLeastLoaded picks the eligible caseworker with the fewest active
// assignments. Candidates are sorted by id first so ties break the same way
// on every run regardless of the order the store returns them.
func (e *Engine) selectLeastLoaded(ctx context.Context) (string, error) {
	candidates, err := e.store.ListEligibleCaseworkers(ctx)
	if err != nil {
		return "", fmt.Errorf("list eligible caseworkers: %w", err)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Strings(candidates)

	best := ""
	bestCount := 0
	for _, id := range candidates {
		count, err := e.store.CountActiveAssignments(ctx, id)
		if err != nil {
			return "", fmt.Errorf("count assignments for %s: %w", id, err)
		}
		if best == "" || count < bestCount {
			best = id
			bestCount = count
		}
	}
	return best, nil
}
