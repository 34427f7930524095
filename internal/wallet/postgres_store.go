package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgCheckViolation       = "23514"
	pgNumericOutOfRange    = "22003"

	defaultPostgresOpTimeout = 5 * time.Second
)

// PostgresStore keeps balances in the wallets table. Mutations run in a
// transaction that row-locks every wallet it touches, in ascending id order.
type PostgresStore struct {
	db        *pgxpool.Pool
	opTimeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed wallet store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, opTimeout: defaultPostgresOpTimeout}
}

// opContext detaches every store call from request cancellation so a started
// unit either commits or rolls back on its own terms, bounded by opTimeout.
func (s *PostgresStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
}

// Open inserts a zero-balance wallet if none exists.
func (s *PostgresStore) Open(ctx context.Context, accountID string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = s.db.Exec(ctx, `INSERT INTO wallets (account_id, balance) VALUES ($1, 0)
        ON CONFLICT (account_id) DO NOTHING`, id)
	return classify(err)
}

// Drop deletes the wallet row.
func (s *PostgresStore) Drop(ctx context.Context, accountID string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = s.db.Exec(ctx, `DELETE FROM wallets WHERE account_id = $1`, id)
	return classify(err)
}

// Balance returns the committed balance.
func (s *PostgresStore) Balance(ctx context.Context, accountID string) (int64, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, ErrAccountNotFound
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var balance int64
	if err := s.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE account_id = $1`, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, classify(err)
	}
	return balance, nil
}

// Increment credits a single wallet. The UPDATE takes the row lock itself.
func (s *PostgresStore) Increment(ctx context.Context, accountID string, amount int64) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, ErrAccountNotFound
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var balance int64
	err = s.db.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2, updated_at = now()
        WHERE account_id = $1 RETURNING balance`, id, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, classify(err)
	}
	return balance, nil
}

// Decrement debits a single wallet after checking the locked balance.
func (s *PostgresStore) Decrement(ctx context.Context, accountID string, amount int64) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, ErrAccountNotFound
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, classify(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockWallet(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientFunds
	}
	if balance, err = applyDelta(ctx, tx, id, -amount); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

// Transfer locks both wallets in ascending id order, checks the sender's
// locked balance, applies both deltas and commits.
func (s *PostgresStore) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	if err := checkTransfer(fromID, toID, amount); err != nil {
		return TransferResult{}, err
	}
	fromUUID, err := uuid.Parse(fromID)
	if err != nil {
		return TransferResult{}, ErrAccountNotFound
	}
	toUUID, err := uuid.Parse(toID)
	if err != nil {
		return TransferResult{}, ErrAccountNotFound
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, classify(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balances := make(map[uuid.UUID]int64, 2)
	first, second := lockOrder(fromUUID.String(), toUUID.String())
	for _, key := range []string{first, second} {
		id := uuid.MustParse(key)
		bal, err := lockWallet(ctx, tx, id)
		if err != nil {
			return TransferResult{}, err
		}
		balances[id] = bal
	}

	if balances[fromUUID] < amount {
		return TransferResult{}, ErrInsufficientFunds
	}

	var res TransferResult
	if res.FromBalance, err = applyDelta(ctx, tx, fromUUID, -amount); err != nil {
		return TransferResult{}, err
	}
	if res.ToBalance, err = applyDelta(ctx, tx, toUUID, amount); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, classify(err)
	}
	return res, nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error) {
	const query = `SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`
	var balance int64
	if err := tx.QueryRow(ctx, query, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, classify(err)
	}
	return balance, nil
}

func applyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	const query = `UPDATE wallets SET balance = balance + $2, updated_at = now()
        WHERE account_id = $1 RETURNING balance`
	var balance int64
	if err := tx.QueryRow(ctx, query, id, delta).Scan(&balance); err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

// classify maps Postgres SQLSTATEs onto the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
	case pgCheckViolation:
		return ErrInsufficientFunds
	case pgNumericOutOfRange:
		return ErrBalanceOverflow
	default:
		return err
	}
}
