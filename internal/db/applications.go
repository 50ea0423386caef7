package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/angadjosan/Claimd/internal/models"
)

// GetApplication retrieves an application by ID.
// Returns ErrNotFound if it doesn't exist.
func (c *Client) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Application](ctx, c.db, `
		SELECT * FROM type::record("application", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get application: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListApplicationFiles returns the document metadata attached to an
// application, oldest upload first.
func (c *Client) ListApplicationFiles(ctx context.Context, applicationID string) ([]models.ApplicationFile, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.ApplicationFile](ctx, c.db, `
		SELECT * FROM application_file WHERE application_id = $app ORDER BY uploaded_at ASC
	`, map[string]any{"app": applicationID})
	if err != nil {
		return nil, fmt.Errorf("list application files: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.ApplicationFile{}, nil
	}
	return (*results)[0].Result, nil
}

// UpdateApplicationReasoning writes the analysis output columns onto the
// application record. Re-running an analysis overwrites the previous values.
func (c *Client) UpdateApplicationReasoning(ctx context.Context, id string, fields map[string]any) error {
	defer c.observe(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("application", $id) MERGE $fields;
		UPDATE type::record("application", $id) SET updated_at = time::now();
	`, map[string]any{"id": id, "fields": fields})
	if err != nil {
		return fmt.Errorf("update application reasoning: %w", wrapQueryError(err))
	}
	return nil
}
