package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/orgchart/internal/dbx"
	"github.com/dmitrijs2005/orgchart/internal/server/repositories/accounts"
)

// MemoryRepositoryManager hands out one shared in-memory store. The db
// arguments are ignored.
type MemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{accounts: accounts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository {
	return m.accounts
}
