package users

import "context"

// Repo persists user accounts.
type Repo interface {
	// Create inserts a user. It returns ErrConflict if the email is taken.
	Create(ctx context.Context, user User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	// Search matches query case-insensitively against email and full name.
	Search(ctx context.Context, query string, limit int) ([]User, error)
	HasAdmin(ctx context.Context) (bool, error)
}
