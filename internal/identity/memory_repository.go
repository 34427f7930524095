package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
}

// NewMemoryRepository builds an in-memory account store.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]Account), byEmail: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[account.Email]; exists {
		return ErrEmailTaken
	}
	r.byID[account.ID] = account
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return r.byID[id], nil
}
