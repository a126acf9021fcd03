package documents

import "context"

// Repo is the document registry.
type Repo interface {
	// Create inserts doc unless its owner already has a file with the same
	// name, in which case it returns ErrConflict.
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	GetByOwnerAndFilename(ctx context.Context, userID, filename string) (Document, error)
	// ListByOwner and ListAll return newest first along with the unpaged total.
	ListByOwner(ctx context.Context, userID string, limit, offset int) ([]Listed, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]Listed, int, error)
	Recent(ctx context.Context, limit int) ([]Listed, error)
	Delete(ctx context.Context, id string) error
}
