// Package resetrequests implements the password-reset ledger: pending reset
// requests, their 24-hour validity window and single-use confirmation.
package resetrequests

import (
	"context"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

// Repository is the password-reset ledger contract.
//
// A request is "active" while it is younger than the configured TTL; expired
// rows are treated as absent by GetActive and purged lazily. The confirmation
// token returned by Create is high-entropy and never stored in plaintext:
// only its one-way hash lives in the ledger, and Confirm compares a candidate
// against that hash.
type Repository interface {
	// Create pre-hashes newPassword, draws a fresh confirmation token and
	// persists the request. It returns the request together with the
	// plaintext confirmation token, which exists only long enough to be
	// delivered to the user. Returns common.ErrRequestAlreadyExists when an
	// active request for email is present.
	Create(ctx context.Context, email, newPassword string) (*models.PasswordResetRequest, string, error)

	// GetActive returns the active request for email, or common.ErrNotFound
	// when there is none (including when only expired rows exist).
	GetActive(ctx context.Context, email string) (*models.PasswordResetRequest, error)

	// Confirm reports whether candidateToken matches the request's stored
	// token hash. A mismatch is not an error: the request stays intact so
	// the caller may allow a retry.
	Confirm(candidateToken string, request *models.PasswordResetRequest) bool

	// Delete removes any request for email. It is idempotent.
	Delete(ctx context.Context, email string) error
}
