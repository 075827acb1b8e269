package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/resetrequests"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/users"
)

// InMemoryRepositoryManager vends map-backed repositories. The same instances
// are returned regardless of the DBTX argument, since there is no database.
type InMemoryRepositoryManager struct {
	users         *users.InMemoryRepository
	resetRequests *resetrequests.InMemoryRepository
}

// NewInMemoryRepositoryManager builds an in-memory manager; now may be nil to
// use the wall clock.
func NewInMemoryRepositoryManager(bcryptCost int, resetTTL time.Duration, now func() time.Time) *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewInMemoryRepository(bcryptCost),
		resetRequests: resetrequests.NewInMemoryRepository(bcryptCost, resetTTL, now),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) ResetRequests(db dbx.DBTX) resetrequests.Repository {
	return m.resetRequests
}
