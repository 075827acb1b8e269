package resetrequests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// confirmationTokenBytes is the entropy of the confirmation token; the hex
// string mailed to the user is twice this long.
const confirmationTokenBytes = 32

type PostgresRepository struct {
	db         dbx.DBTX
	bcryptCost int
	ttl        time.Duration
	now        func() time.Time
}

// NewPostgresRepository builds a ledger over db. ttl is the validity window
// of a request (24h in production); now is injectable for tests and defaults
// to time.Now when nil.
func NewPostgresRepository(db dbx.DBTX, bcryptCost int, ttl time.Duration, now func() time.Time) *PostgresRepository {
	if now == nil {
		now = time.Now
	}
	return &PostgresRepository{db: db, bcryptCost: bcryptCost, ttl: ttl, now: now}
}

func (r *PostgresRepository) Create(ctx context.Context, email, newPassword string) (*models.PasswordResetRequest, string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing error: %w", err)
	}

	token, err := common.MakeRandHexString(confirmationTokenBytes)
	if err != nil {
		return nil, "", fmt.Errorf("token generation error: %w", err)
	}
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), r.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing error: %w", err)
	}

	// Expired rows are purged lazily here so the unique index on email only
	// ever rejects a genuinely active duplicate.
	purge :=
		`DELETE FROM change_password_request
		 WHERE email = $1 AND created_at <= $2
		 `
	if _, err := r.db.ExecContext(ctx, purge, email, r.cutoff()); err != nil {
		return nil, "", fmt.Errorf("db error: %w", err)
	}

	query :=
		`INSERT INTO change_password_request (email, password, token_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	request := &models.PasswordResetRequest{
		Email:           email,
		NewPasswordHash: string(passwordHash),
		TokenHash:       string(tokenHash),
	}
	err = r.db.QueryRowContext(ctx, query, email, string(passwordHash), string(tokenHash)).
		Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, "", common.ErrRequestAlreadyExists
		}
		return nil, "", fmt.Errorf("db error: %w", err)
	}

	return request, token, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, email string) (*models.PasswordResetRequest, error) {
	query :=
		`SELECT id, email, password, token_hash, created_at FROM change_password_request
		 WHERE email = $1 AND created_at > $2
		 `

	request := &models.PasswordResetRequest{}
	err := r.db.QueryRowContext(ctx, query, email, r.cutoff()).
		Scan(&request.ID, &request.Email, &request.NewPasswordHash, &request.TokenHash, &request.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return request, nil
}

func (r *PostgresRepository) Confirm(candidateToken string, request *models.PasswordResetRequest) bool {
	return bcrypt.CompareHashAndPassword([]byte(request.TokenHash), []byte(candidateToken)) == nil
}

func (r *PostgresRepository) Delete(ctx context.Context, email string) error {
	query :=
		`DELETE FROM change_password_request
		 WHERE email = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) cutoff() time.Time {
	return r.now().Add(-r.ttl)
}
