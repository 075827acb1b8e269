// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/server/migrations"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/resetrequests"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	bcryptCost int
	resetTTL   time.Duration
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed manager.
// bcryptCost governs password and confirmation-token hashing; resetTTL is the
// password-reset validity window.
func NewPostgresRepositoryManager(bcryptCost int, resetTTL time.Duration) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{bcryptCost: bcryptCost, resetTTL: resetTTL}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db, m.bcryptCost)
}

// ResetRequests returns a resetrequests.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) ResetRequests(db dbx.DBTX) resetrequests.Repository {
	return resetrequests.NewPostgresRepository(db, m.bcryptCost, m.resetTTL, nil)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
