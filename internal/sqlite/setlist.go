package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/repository"
)

// SetlistRepository stores each project's setlists as one JSON document.
type SetlistRepository struct {
	db *DB
}

// NewSetlistRepository creates a new SetlistRepository
func NewSetlistRepository(db *DB) *SetlistRepository {
	return &SetlistRepository{db: db}
}

// Load returns the document of projectID or repository.ErrNotFound.
func (r *SetlistRepository) Load(ctx context.Context, projectID string) (*setlist.Document, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM setlist_documents WHERE project_id = ?`,
		projectID,
	).Scan(&raw)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load setlists: %w", err)
	}

	var doc setlist.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode setlist document: %w", err)
	}
	return &doc, nil
}

// Save replaces the document of projectID.
func (r *SetlistRepository) Save(ctx context.Context, projectID string, doc *setlist.Document) error {
	if projectID == "" || doc == nil {
		return repository.ErrInvalidInput
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode setlist document: %w", err)
	}

	var selected sql.NullString
	if doc.SelectedSetlistID != "" {
		selected = sql.NullString{String: doc.SelectedSetlistID, Valid: true}
	}

	query := `
		INSERT INTO setlist_documents (project_id, document, selected_setlist_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			document = excluded.document,
			selected_setlist_id = excluded.selected_setlist_id,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, projectID, string(raw), selected, doc.LastUpdated); err != nil {
		return fmt.Errorf("failed to save setlists: %w", err)
	}
	return nil
}
