package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/peerwallet/internal/metrics"
	"github.com/congo-pay/peerwallet/internal/validation"
	"github.com/congo-pay/peerwallet/internal/wallet"
)

// Service credits wallets.
type Service struct {
	store   wallet.Store
	retry   wallet.RetryPolicy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService builds a funding service. m may be nil.
func NewService(store wallet.Store, retry wallet.RetryPolicy, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, retry: retry, metrics: m, logger: logger}
}

// FundInput names the wallet to credit and the amount in minor units.
type FundInput struct {
	AccountID string
	Amount    int64
}

// FundResult represents the outcome of a funding request.
type FundResult struct {
	Balance     int64
	CompletedAt time.Time
}

// Fund credits the account's wallet and returns the new balance.
func (s *Service) Fund(ctx context.Context, input FundInput) (FundResult, error) {
	if err := validation.Amount(input.Amount); err != nil {
		s.metrics.ObserveFunding(metrics.OutcomeInvalid)
		return FundResult{}, wallet.ErrInvalidAmount
	}

	var balance int64
	err := s.retry.Do(ctx, func() error {
		var incErr error
		balance, incErr = s.store.Increment(ctx, input.AccountID, input.Amount)
		return incErr
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrBalanceOverflow):
			s.metrics.ObserveFunding(metrics.OutcomeInvalid)
			return FundResult{}, err
		case errors.Is(err, wallet.ErrConflict):
			s.metrics.ObserveFunding(metrics.OutcomeConflict)
			return FundResult{}, err
		default:
			s.metrics.ObserveFunding(metrics.OutcomeError)
			return FundResult{}, fmt.Errorf("fund wallet: %w", err)
		}
	}

	s.metrics.ObserveFunding(metrics.OutcomeSuccess)
	s.logger.Info("wallet.funded", "account_id", input.AccountID, "amount", input.Amount)
	return FundResult{Balance: balance, CompletedAt: time.Now().UTC()}, nil
}
