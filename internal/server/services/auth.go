// Package services contains the server-side business logic. This file
// implements AuthService, which composes the credential store, the
// password-reset ledger and the token service into the gateway operations:
// login, registration, password changes, the reset flow, and token
// refresh/validation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/mail"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides the authentication operations. It is the only
// component with cross-dependencies: the credential store and the reset
// ledger never see each other except through it.
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	mailer                       mail.Mailer
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		mailer:                       mailer,
		logger:                       logger.With("module", "auth_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Login verifies the credentials and, on success, returns the user together
// with a fresh token pair. Whether the username or the password was wrong is
// logged but never exposed to the caller: both cases yield
// common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info(ctx, "login failed: unknown username", "username", username)
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("error searching user: %w", err)
	}

	if !repo.VerifyPassword(password, user) {
		s.logger.Info(ctx, "login failed: password mismatch", "username", username)
		return nil, nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Register creates a new user. A duplicate username yields
// common.ErrUsernameTaken; the unique constraint in the store is
// authoritative when two registrations race past the existence check.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByUsername(ctx, username)
	if err == nil {
		return nil, common.ErrUsernameTaken
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	user, err := repo.Create(ctx, email, username, password)
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// GetUserByID returns the user with the given id.
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpdateUser mutates the user's email and username. The password hash is
// never touched by this path.
func (s *AuthService) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return s.repomanager.Users(s.db).Update(ctx, user)
}

// ChangePassword installs a new password for an authenticated user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByID(ctx, userID); err != nil {
		return err
	}
	return repo.ChangePassword(ctx, userID, newPassword, false)
}

// DeleteUser removes the user record.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).Delete(ctx, userID)
}

// RequestPasswordReset opens a reset request for the account behind email and
// mails the confirmation token. The new password is hashed now, so the
// confirmation step never sees plaintext. Mail delivery is best-effort:
// a send failure is logged and the operation still succeeds.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, newPassword string) (*models.PasswordResetRequest, error) {
	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err != nil {
		return nil, err
	}

	request, token, err := s.repomanager.ResetRequests(s.db).Create(ctx, email, newPassword)
	if err != nil {
		if errors.Is(err, common.ErrRequestAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating change password request: %w", err)
	}

	if err := s.mailer.SendConfirmationEmail(ctx, email, token); err != nil {
		s.logger.Error(ctx, "error sending confirmation email", "email", email, "error", err.Error())
	}

	return request, nil
}

// ConfirmPasswordReset consumes a pending reset request: it checks the
// presented confirmation token, installs the pre-hashed password and deletes
// the request, all inside one transaction. A wrong token leaves the request
// intact so the user may retry; a consumed request is gone, so a second
// confirmation fails with common.ErrNotFound.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, confirmationToken string) error {
	ledger := s.repomanager.ResetRequests(s.db)

	request, err := ledger.GetActive(ctx, email)
	if err != nil {
		return err
	}

	if !ledger.Confirm(confirmationToken, request) {
		return common.ErrInvalidConfirmation
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).ChangePassword(ctx, user.ID, request.NewPasswordHash, true); err != nil {
			return err
		}
		return s.repomanager.ResetRequests(tx).Delete(ctx, email)
	})
}

// Refresh exchanges a valid refresh token for a new access/refresh pair.
// Access tokens are rejected here: the type claim must be "refresh".
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if claims.Type != auth.TokenTypeRefresh {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return s.generateTokenPair(user.ID, user.Username)
}

// Validate checks an access token and returns the user it belongs to.
// Refresh tokens are rejected here: the type claim must be "access".
func (s *AuthService) Validate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if claims.Type != auth.TokenTypeAccess {
		return nil, common.ErrInvalidToken
	}

	return s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
}

func (s *AuthService) generateTokenPair(userID, username string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, username, auth.TokenTypeAccess, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := auth.GenerateToken(userID, username, auth.TokenTypeRefresh, s.jwtSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
