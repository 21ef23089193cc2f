package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Upsert inserts a project or refreshes its name and last_seen.
func (r *ProjectRepository) Upsert(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, name, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			last_seen = excluded.last_seen
	`

	_, err := r.db.ExecContext(ctx, query,
		proj.ID,
		proj.Name,
		proj.FirstSeen,
		proj.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	query := `
		SELECT id, name, first_seen, last_seen
		FROM projects
		WHERE id = ?
	`

	var proj project.Project
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&proj.ID,
		&proj.Name,
		&proj.FirstSeen,
		&proj.LastSeen,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &proj, nil
}

// List returns all known projects, most recently seen first.
func (r *ProjectRepository) List(ctx context.Context) ([]project.ProjectSummary, error) {
	query := `
		SELECT
			p.id, p.name, p.last_seen,
			COALESCE(json_array_length(d.document, '$.setlists'), 0) AS setlist_count
		FROM projects p
		LEFT JOIN setlist_documents d ON d.project_id = p.id
		ORDER BY p.last_seen DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var summaries []project.ProjectSummary
	for rows.Next() {
		var s project.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.LastSeen, &s.SetlistCount); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return summaries, nil
}
