package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/orders"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/users"
)

// MemoryRepositoryManager serves the same in-memory repositories regardless
// of the connection passed in; transactions are not supported.
type MemoryRepositoryManager struct {
	users  *users.MemoryRepository
	orders *orders.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryRepository(),
		orders: orders.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Orders(dbx.DBTX) orders.Repository { return m.orders }

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }
