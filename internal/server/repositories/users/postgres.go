package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

type PostgresRepository struct {
	db         dbx.DBTX
	bcryptCost int
}

func NewPostgresRepository(db dbx.DBTX, bcryptCost int) *PostgresRepository {
	return &PostgresRepository{db: db, bcryptCost: bcryptCost}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The unique indexes on username and email are the authoritative
// guard against duplicate-registration races.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// emailValue maps an absent email to NULL. Email is optional, and the unique
// index must only apply to users that actually have one; empty strings would
// collide on it.
func emailValue(email string) sql.NullString {
	return sql.NullString{String: email, Valid: email != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, email, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing error: %w", err)
	}

	query :=
		`INSERT INTO users (email, username, password)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	user := &models.User{Email: email, Username: username, PasswordHash: string(hash)}
	err = r.db.QueryRowContext(ctx, query, emailValue(email), username, string(hash)).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT id, email, username, password FROM users
		 WHERE username = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	// Email-less users are unaddressable by this lookup; an empty string must
	// not match their NULL column.
	if email == "" {
		return nil, common.ErrNotFound
	}

	query :=
		`SELECT id, email, username, password FROM users
		 WHERE email = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, username, password FROM users
		 WHERE id = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString
	err := row.Scan(&user.ID, &email, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.Email = email.String
	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users SET email = $1, username = $2
		 WHERE id = $3
		 `

	result, err := r.db.ExecContext(ctx, query, emailValue(user.Email), user.Username, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return nil, common.ErrNotFound
	}

	return user, nil
}

func (r *PostgresRepository) ChangePassword(ctx context.Context, id, newPassword string, alreadyHashed bool) error {
	value := newPassword
	if !alreadyHashed {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.bcryptCost)
		if err != nil {
			return fmt.Errorf("hashing error: %w", err)
		}
		value = string(hash)
	}

	query :=
		`UPDATE users SET password = $1
		 WHERE id = $2
		 `

	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM users
		 WHERE id = $1
		 `

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) VerifyPassword(plaintext string, user *models.User) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}
