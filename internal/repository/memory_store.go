package repository

import (
	"context"
	"strings"
	"sync"

	"go-auth-service/internal/model"
	"go-auth-service/internal/util"
)

// MemoryAccountStore is a mutex-guarded in-memory implementation of the
// account store, used by unit and integration tests in place of Postgres.
// It enforces the same semantics: case-insensitive uniqueness and a
// compare-and-increment version guard.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: map[string]model.Account{}}
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return account, nil
}

func (s *MemoryAccountStore) FindByUsernameOrEmail(_ context.Context, username string, email string) (model.Account, error) {
	username = util.NormalizeIdentifier(username)
	email = util.NormalizeIdentifier(email)
	if username == "" && email == "" {
		return model.Account{}, model.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if username != "" && strings.ToLower(account.Username) == username {
			return account, nil
		}
		if email != "" && strings.ToLower(account.Email) == email {
			return account, nil
		}
	}
	return model.Account{}, model.ErrAccountNotFound
}

func (s *MemoryAccountStore) Create(_ context.Context, account model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, account.Email) || strings.EqualFold(existing.Username, account.Username) {
			return model.ErrDuplicateAccount
		}
	}

	s.accounts[account.ID] = account
	return nil
}

func (s *MemoryAccountStore) IncrementTokenVersion(_ context.Context, id string, fromVersion int) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.TokenVersion != fromVersion {
		return model.Account{}, model.ErrVersionConflict
	}

	account.TokenVersion++
	s.accounts[id] = account
	return account, nil
}
