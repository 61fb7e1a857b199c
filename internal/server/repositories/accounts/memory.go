package accounts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/dmitrijs2005/orgchart/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. It is meant for local
// runs and tests; nothing survives a restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	now      func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]models.Account),
		now:      time.Now,
	}
}

func key(username string) string {
	return strings.ToLower(username)
}

func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[key(username)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(account.Username)
	if _, exists := r.accounts[k]; exists {
		return common.ErrUsernameTaken
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = r.now().UTC()
	}
	r.accounts[k] = *account
	return nil
}

// Len reports how many accounts are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
