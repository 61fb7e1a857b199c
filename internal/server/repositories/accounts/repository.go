// Package accounts persists registered accounts. Usernames are matched
// case-insensitively by every implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/orgchart/internal/server/models"
)

type Repository interface {
	// FindByUsername returns common.ErrorNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	// Insert stores account and fills in ID and CreatedAt when they are
	// empty. A duplicate username yields common.ErrUsernameTaken.
	Insert(ctx context.Context, account *models.Account) error
}
