// Package transfer moves funds between two accounts identified by the sender's
// id and the receiver's email.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/peerwallet/internal/identity"
	"github.com/congo-pay/peerwallet/internal/metrics"
	"github.com/congo-pay/peerwallet/internal/notification"
	"github.com/congo-pay/peerwallet/internal/validation"
	"github.com/congo-pay/peerwallet/internal/wallet"
)

// SuccessMessage is returned for every completed transfer.
const SuccessMessage = "Funds sent successfully"

var (
	// ErrSenderMissing means the authenticated sender has no account record.
	ErrSenderMissing = errors.New("sender account missing")
	// ErrReceiverNotFound means no account is registered under the receiver email.
	ErrReceiverNotFound = errors.New("receiver account not found")
	// ErrSelfTransfer rejects a transfer to the sender's own account.
	ErrSelfTransfer = errors.New("cannot transfer funds to your own account")
)

// Directory resolves accounts by id or normalized email.
type Directory interface {
	FindByID(ctx context.Context, id string) (identity.Account, error)
	FindByEmail(ctx context.Context, email string) (identity.Account, error)
}

// Service orchestrates peer-to-peer transfers on top of a wallet.Store.
type Service struct {
	accounts Directory
	store    wallet.Store
	retry    wallet.RetryPolicy
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService constructs a transfer service. notifier and m may be nil.
func NewService(accounts Directory, store wallet.Store, retry wallet.RetryPolicy, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{accounts: accounts, store: store, notifier: notifier, metrics: m, logger: logger}
	onRetry := retry.OnRetry
	retry.OnRetry = func(attempt int, err error) {
		s.metrics.TransferRetried()
		s.logger.Warn("transfer.retry", "attempt", attempt, "error", err)
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	s.retry = retry
	return s
}

// Input names the sender, the receiver and the amount in minor units.
type Input struct {
	SenderID      string
	ReceiverEmail string
	Amount        int64
}

// Result describes a committed transfer.
type Result struct {
	Message     string
	SenderID    string
	ReceiverID  string
	FromBalance int64
	ToBalance   int64
	CompletedAt time.Time
}

// Transfer validates the request, resolves both accounts and moves the funds
// in a single atomic store operation. Store conflicts are retried according
// to the retry policy.
func (s *Service) Transfer(ctx context.Context, in Input) (res Result, err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveTransfer(outcome(err), time.Since(started))
	}()

	if err := validation.Amount(in.Amount); err != nil {
		return Result{}, wallet.ErrInvalidAmount
	}
	if err := validation.Email(in.ReceiverEmail); err != nil {
		return Result{}, err
	}

	sender, err := s.accounts.FindByID(ctx, in.SenderID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %s", ErrSenderMissing, in.SenderID)
		}
		return Result{}, fmt.Errorf("lookup sender: %w", err)
	}
	receiver, err := s.accounts.FindByEmail(ctx, validation.NormalizeEmail(in.ReceiverEmail))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, ErrReceiverNotFound
		}
		return Result{}, fmt.Errorf("lookup receiver: %w", err)
	}
	if sender.ID == receiver.ID {
		return Result{}, ErrSelfTransfer
	}

	// Fast fail only. The store re-checks under lock.
	balance, err := s.store.Balance(ctx, sender.ID)
	if err != nil {
		return Result{}, fmt.Errorf("read sender balance: %w", err)
	}
	if balance < in.Amount {
		return Result{}, wallet.ErrInsufficientFunds
	}

	var committed wallet.TransferResult
	err = s.retry.Do(ctx, func() error {
		var txErr error
		committed, txErr = s.store.Transfer(ctx, sender.ID, receiver.ID, in.Amount)
		return txErr
	})
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) || errors.Is(err, wallet.ErrConflict) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("transfer: %w", err)
	}

	res = Result{
		Message:     SuccessMessage,
		SenderID:    sender.ID,
		ReceiverID:  receiver.ID,
		FromBalance: committed.FromBalance,
		ToBalance:   committed.ToBalance,
		CompletedAt: time.Now().UTC(),
	}

	s.logger.Info("transfer.completed", "sender_id", sender.ID, "receiver_id", receiver.ID, "amount", in.Amount)

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindFundsReceived,
			Destination: receiver.Email,
			Body:        fmt.Sprintf("You received %d from %s", in.Amount, sender.Email),
		}); err != nil {
			s.logger.Warn("transfer.notify_failed", "receiver_id", receiver.ID, "error", err)
		}
	}

	return res, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return metrics.OutcomeInsufficient
	case errors.Is(err, ErrReceiverNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, validation.ErrInvalid), errors.Is(err, ErrSelfTransfer):
		return metrics.OutcomeInvalid
	case errors.Is(err, wallet.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
