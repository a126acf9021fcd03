package projectnotes

import "context"

// Repo persists project notes.
type Repo interface {
	Create(ctx context.Context, note Note) error
	Get(ctx context.Context, id string) (Note, error)
	// List returns notes oldest first.
	List(ctx context.Context) ([]Note, error)
	Update(ctx context.Context, note Note) error
	Delete(ctx context.Context, id string) error
}
