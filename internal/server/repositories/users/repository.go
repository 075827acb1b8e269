// Package users implements the credential store: persisted user records and
// the hashing/verification of their passwords.
package users

import (
	"context"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

// Repository is the credential store contract. Implementations own password
// hashing: plaintext passwords cross this boundary exactly once, on Create or
// ChangePassword, and only the hash is ever persisted.
type Repository interface {
	// Create hashes the plaintext password, assigns a new id and persists the
	// user. Returns common.ErrUsernameTaken when the username (or email) is
	// already in use.
	Create(ctx context.Context, email, username, password string) (*models.User, error)

	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Update mutates email and username. It never touches the password hash.
	// Returns common.ErrNotFound when the id does not exist.
	Update(ctx context.Context, user *models.User) (*models.User, error)

	// ChangePassword installs a new password. When alreadyHashed is true the
	// value is stored as-is; the password-reset confirmation path uses this,
	// since reset requests hash the new password at request time.
	ChangePassword(ctx context.Context, id, newPassword string, alreadyHashed bool) error

	// Delete removes the user, returning common.ErrNotFound when no row was
	// affected.
	Delete(ctx context.Context, id string) error

	// VerifyPassword reports whether plaintext matches the user's stored
	// hash. It never compares raw strings.
	VerifyPassword(plaintext string, user *models.User) bool
}
