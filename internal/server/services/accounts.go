package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/dmitrijs2005/orgchart/internal/logging"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/dmitrijs2005/orgchart/internal/server/models"
	"github.com/dmitrijs2005/orgchart/internal/server/repositories/repomanager"
)

// Session is what a successful register or login hands back to the caller.
type Session struct {
	Username string
	UserID   string
	Token    string
}

// AccountService implements registration and login.
//
// Rejections are reported with the sentinel errors from package common.
// Any other error means a collaborator failed and the attempt did not
// complete.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	tokens      auth.TokenService
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher,
	tokens auth.TokenService, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger.With("component", "account_service"),
	}
}

// Register creates an account and returns a session for it.
func (s *AccountService) Register(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, common.ErrMissingFields
	}

	// storage calls run to completion even if the client goes away
	ctx = context.WithoutCancel(ctx)
	repo := s.repomanager.Accounts(s.db)

	_, err := repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrUsernameTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up account: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{Username: username, PasswordHash: hash}
	if err := repo.Insert(ctx, account); err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	token, err := s.tokens.Issue(auth.Subject{Username: account.Username, UserID: account.ID})
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	s.logger.Info(ctx, "account registered", "username", account.Username, "user_id", account.ID)

	return &Session{Username: account.Username, UserID: account.ID, Token: token}, nil
}

// Login checks the credentials and returns a fresh session.
func (s *AccountService) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, common.ErrMissingFields
	}

	ctx = context.WithoutCancel(ctx)
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up account: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, common.ErrCredentialsMismatch
	}

	token, err := s.tokens.Issue(auth.Subject{Username: account.Username, UserID: account.ID})
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	s.logger.Debug(ctx, "login succeeded", "username", account.Username)

	return &Session{Username: account.Username, UserID: account.ID, Token: token}, nil
}
