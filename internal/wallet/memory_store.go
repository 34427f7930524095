package wallet

import (
	"context"
	"sync"
)

type memoryWallet struct {
	mu      sync.Mutex
	balance int64
}

// MemoryStore is a concurrency-safe in-process Store. Each wallet has its own
// mutex; transfers take both mutexes in ascending account-id order.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]*memoryWallet
}

// NewMemoryStore creates an empty in-memory wallet store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]*memoryWallet)}
}

func (s *MemoryStore) lookup(accountID string) (*memoryWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return w, nil
}

func (s *MemoryStore) Open(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[accountID]; !exists {
		s.wallets[accountID] = &memoryWallet{}
	}
	return nil
}

func (s *MemoryStore) Drop(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, accountID)
	return nil
}

func (s *MemoryStore) Balance(_ context.Context, accountID string) (int64, error) {
	w, err := s.lookup(accountID)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, nil
}

func (s *MemoryStore) Increment(_ context.Context, accountID string, amount int64) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	w, err := s.lookup(accountID)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !canCredit(w.balance, amount) {
		return 0, ErrBalanceOverflow
	}
	w.balance += amount
	return w.balance, nil
}

func (s *MemoryStore) Decrement(_ context.Context, accountID string, amount int64) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	w, err := s.lookup(accountID)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balance < amount {
		return 0, ErrInsufficientFunds
	}
	w.balance -= amount
	return w.balance, nil
}

func (s *MemoryStore) Transfer(_ context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	if err := checkTransfer(fromID, toID, amount); err != nil {
		return TransferResult{}, err
	}
	from, err := s.lookup(fromID)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.lookup(toID)
	if err != nil {
		return TransferResult{}, err
	}

	first, second := from, to
	if lo, _ := lockOrder(fromID, toID); lo == toID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.balance < amount {
		return TransferResult{}, ErrInsufficientFunds
	}
	if !canCredit(to.balance, amount) {
		return TransferResult{}, ErrBalanceOverflow
	}
	from.balance -= amount
	to.balance += amount

	return TransferResult{FromBalance: from.balance, ToBalance: to.balance}, nil
}
