// Package wallet holds account balances and the atomic operations that mutate
// them. Every backend evaluates sufficiency checks inside the same unit of
// isolation as the mutation they guard.
package wallet

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrAccountNotFound means no wallet exists for the account id.
	ErrAccountNotFound = errors.New("wallet account not found")

	// ErrInsufficientFunds occurs when the source balance cannot cover the debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for amounts that are not strictly positive.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrSameAccount rejects a transfer whose source and destination coincide.
	ErrSameAccount = errors.New("source and destination wallets are the same")

	// ErrBalanceOverflow is returned when a credit would exceed the backend's balance range.
	ErrBalanceOverflow = errors.New("balance would overflow")

	// ErrConflict signals transient contention (serialization failure, deadlock).
	// Callers may retry the whole operation.
	ErrConflict = errors.New("wallet update conflict")
)

// TransferResult carries the balances committed by a transfer.
type TransferResult struct {
	FromBalance int64
	ToBalance   int64
}

// Store is the contract implemented by wallet backends.
type Store interface {
	// Open creates a zero-balance wallet. Opening an existing wallet is a no-op.
	Open(ctx context.Context, accountID string) error
	// Drop removes a wallet. Only used to undo an Open whose account was never created.
	Drop(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (int64, error)
	Increment(ctx context.Context, accountID string, amount int64) (int64, error)
	Decrement(ctx context.Context, accountID string, amount int64) (int64, error)
	// Transfer debits fromID and credits toID as one indivisible unit.
	Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error)
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func checkTransfer(fromID, toID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if fromID == toID {
		return ErrSameAccount
	}
	return nil
}

func canCredit(balance, amount int64) bool {
	return balance <= math.MaxInt64-amount
}

// lockOrder returns the two ids in the global acquisition order (ascending).
func lockOrder(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
