package models

import "time"

// PasswordResetRequest is a pending password change for one email address.
// NewPasswordHash is hashed at request time, so the plaintext never crosses
// the trust boundary again. TokenHash is the bcrypt hash of the confirmation
// token mailed to the user; the plaintext token is never stored.
type PasswordResetRequest struct {
	ID              string
	Email           string
	NewPasswordHash string
	TokenHash       string
	CreatedAt       time.Time
}
