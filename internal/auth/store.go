package auth

import "context"

// UserStore describes persistence operations required by the auth service.
// Lookups return ErrNotFound when nothing matches; Create returns ErrConflict
// when the email is taken.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByEmailWithPasswordHash(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error

	AssignRoles(ctx context.Context, userID string, roleNames []string) error
	Roles(ctx context.Context, userID string) ([]Role, error)
}
