package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/angadjosan/Claimd/internal/models"
)

// FindAssignment returns the assignment row for an application, or nil if the
// application is unassigned.
func (c *Client) FindAssignment(ctx context.Context, applicationID string) (*models.Assignment, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Assignment](ctx, c.db, `
		SELECT * FROM assigned_application WHERE application_id = $app LIMIT 1
	`, map[string]any{"app": applicationID})
	if err != nil {
		return nil, fmt.Errorf("find assignment: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CreateAssignment inserts an assignment row linking an application to a
// reviewer. The unique index on application_id makes this safe under races:
// a duplicate insert returns ErrAlreadyAssigned instead of a second row.
// assignedBy is nil for system-initiated assignments.
func (c *Client) CreateAssignment(ctx context.Context, applicationID, reviewerID string, priority int, assignedBy *string) (*models.Assignment, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Assignment](ctx, c.db, `
		CREATE assigned_application CONTENT {
			application_id: $app,
			reviewer_id: $reviewer,
			review_status: 'unopened',
			priority: $priority,
			assigned_by: $assigned_by,
			assigned_at: time::now()
		}
	`, map[string]any{
		"app":         applicationID,
		"reviewer":    reviewerID,
		"priority":    priority,
		"assigned_by": assignedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create assignment: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create assignment: no row returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListEligibleCaseworkers returns the ids of users that can receive new
// assignments: role caseworker, active, and currently available.
func (c *Client) ListEligibleCaseworkers(ctx context.Context) ([]string, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]string](ctx, c.db, `
		SELECT VALUE record::id(id) FROM user
		WHERE role = 'caseworker' AND is_active = true AND caseworker_available = true
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list eligible caseworkers: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}
	return (*results)[0].Result, nil
}

// CountActiveAssignments counts a reviewer's open workload: assignments still
// unopened or in progress. Completed reviews don't count against the balance.
func (c *Client) CountActiveAssignments(ctx context.Context, reviewerID string) (int, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM assigned_application
		WHERE reviewer_id = $reviewer AND review_status IN ['unopened', 'in_progress']
		GROUP ALL
	`, map[string]any{"reviewer": reviewerID})
	if err != nil {
		return 0, fmt.Errorf("count active assignments: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
