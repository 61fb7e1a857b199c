package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/orgchart/internal/dbx"
	"github.com/dmitrijs2005/orgchart/internal/server/repositories/accounts"
)

// RepositoryManager vends repositories for one storage backend and prepares
// that backend's schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}
