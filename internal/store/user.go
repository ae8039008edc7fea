package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store and assigns its ID.
	// The plaintext Password is hashed before it is written.
	// Returns ErrUsernameExists if the username is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdatePassword hashes password and stores it for the user.
	// Returns ErrUserNotFound if the user does not exist.
	UpdatePassword(ctx context.Context, id int64, password string) error

	// WithTx returns a UserStore that runs its queries inside tx.
	WithTx(tx *sql.Tx) UserStore
}
