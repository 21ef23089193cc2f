package setlist

import "context"

// Repository persists one setlist document per project.
type Repository interface {
	Load(ctx context.Context, projectID string) (*Document, error)
	Save(ctx context.Context, projectID string, doc *Document) error
}
