package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/peerwallet/internal/validation"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// WalletOpener provisions the wallet that backs every account.
type WalletOpener interface {
	Open(ctx context.Context, accountID string) error
	Drop(ctx context.Context, accountID string) error
}

// Service manages the account lifecycle.
type Service struct {
	repo    Repository
	hasher  PasswordHasher
	wallets WalletOpener
	logger  *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher PasswordHasher, wallets WalletOpener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, wallets: wallets, logger: logger}
}

// Register validates the request, opens a zero-balance wallet and stores the
// account. If the account cannot be stored the wallet is dropped again, so an
// account is never visible without its wallet.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	if err := validation.Registration(in.Name, in.Email, in.Password); err != nil {
		return Account{}, err
	}
	email := validation.NormalizeEmail(in.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return Account{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.wallets.Open(ctx, account.ID); err != nil {
		return Account{}, fmt.Errorf("open wallet: %w", err)
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if dropErr := s.wallets.Drop(context.WithoutCancel(ctx), account.ID); dropErr != nil {
			s.logger.Error("identity.register.compensate_failed", "account_id", account.ID, "error", dropErr)
		}
		if errors.Is(err, ErrEmailTaken) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("identity.registered", "account_id", account.ID)
	return account, nil
}

// Authenticate verifies an email and password pair. Unknown emails still pay
// for one hash comparison.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	if err := validation.Login(creds.Email, creds.Password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	account, err := s.repo.FindByEmail(ctx, validation.NormalizeEmail(creds.Email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Account{}, fmt.Errorf("lookup email: %w", err)
		}
		_ = s.hasher.Verify(s.dummy(), creds.Password)
		return Account{}, ErrInvalidCredentials
	}
	if err := s.hasher.Verify(account.PasswordHash, creds.Password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail resolves an account by email, normalizing it first.
func (s *Service) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.FindByEmail(ctx, validation.NormalizeEmail(email))
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
