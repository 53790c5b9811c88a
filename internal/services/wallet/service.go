// Package wallet manages the per-user balance aggregate: creation,
// snapshots, payout destinations and withdrawal limit checks. Balance
// mutation itself only ever happens through committed ledger transactions.
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/gateway"
	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
)

// Cache is the subset of the cache service wallet reads go through.
// GetWallet returns (nil, nil) on a miss.
type Cache interface {
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	InvalidateWallet(ctx context.Context, userID uint) error
}

type service struct {
	repo     repositories.LedgerRepository
	cache    Cache
	gateway  gateway.Gateway
	config   WalletConfig
	logger   *logging.Logger
	metrics  MetricsCollector
	validate *validator.Validate
}

// NewService creates a new wallet service
func NewService(
	repo repositories.LedgerRepository,
	cache Cache,
	gw gateway.Gateway,
	config WalletConfig,
	logger *logging.Logger,
	metrics MetricsCollector,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.DefaultLimits == nil {
		config.DefaultLimits = defaultLimits()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = CacheDuration
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		repo:     repo,
		cache:    cache,
		gateway:  gw,
		config:   config,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(),
	}
}

func (s *service) Create(ctx context.Context, userID uint, accountType models.Account) (*models.Wallet, error) {
	if userID == 0 {
		return nil, apperr.Validation("INVALID_USER", "user id is required")
	}
	if !accountType.UserScoped() {
		return nil, apperr.Validation("INVALID_ACCOUNT_TYPE", fmt.Sprintf("%s is not a wallet account", accountType))
	}

	w := &models.Wallet{
		UserID:      userID,
		AccountType: accountType,
		Balance:     decimal.Zero,
		Currency:    s.config.DefaultCurrency,
		Status:      models.WalletActive,
		Limits:      s.config.DefaultLimits[accountType],
	}
	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	s.cacheWallet(ctx, w)
	s.logger.Field("user_id", userID).Info("wallet created")
	return w, nil
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if s.cache != nil {
		if w, err := s.cache.GetWallet(ctx, userID); err == nil && w != nil {
			s.metrics.RecordCacheHit("wallet")
			return w, nil
		}
		s.metrics.RecordCacheMiss("wallet")
	}

	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cacheWallet(ctx, w)
	return w, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (s *service) GetSnapshot(ctx context.Context, userID uint) (*Snapshot, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	available := decimal.Max(decimal.Zero, w.Balance.Sub(w.Limits.MinimumBalance))
	return &Snapshot{
		UserID:        w.UserID,
		AccountType:   w.AccountType,
		Status:        w.Status,
		Currency:      w.Currency,
		Balance:       w.Balance,
		Available:     available,
		Usage:         w.Usage(now),
		BankAccount:   w.BankAccount,
		Meta:          w.Meta,
		HasPendingOut: w.PendingWithdrawalID != nil,
	}, nil
}

// CheckWithdrawalLimits is the read-only pre-flight check. The engine
// repeats it under the wallet lock when the withdrawal actually commits.
func (s *service) CheckWithdrawalLimits(ctx context.Context, userID uint, amount, fee decimal.Decimal) error {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return err
	}
	if w.Status != models.WalletActive {
		return apperr.ErrWalletNotActive
	}
	_, err = w.CheckWithdrawal(amount, fee, time.Now().UTC())
	return err
}

func (s *service) UpdateLimits(ctx context.Context, userID uint, limits models.WalletLimits) error {
	if limits.DailyWithdrawal.IsNegative() || limits.MonthlyWithdrawal.IsNegative() || limits.MinimumBalance.IsNegative() {
		return apperr.Validation("INVALID_LIMITS", "limits cannot be negative")
	}
	if limits.DailyWithdrawal.GreaterThan(limits.MonthlyWithdrawal) {
		return apperr.Validation("INVALID_LIMITS", "daily limit cannot exceed the monthly limit")
	}

	err := s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		w, err := r.GetWalletForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		w.Limits = limits
		return r.SaveWallet(ctx, w)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *service) SetStatus(ctx context.Context, userID uint, status, reason string) error {
	switch status {
	case models.WalletActive, models.WalletSuspended, models.WalletFrozen, models.WalletClosed:
	default:
		return apperr.Validation("INVALID_STATUS", fmt.Sprintf("unknown wallet status %q", status))
	}

	err := s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		w, err := r.GetWalletForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if status == models.WalletClosed && !w.Balance.IsZero() {
			return apperr.Conflict("WALLET_NOT_EMPTY", "wallet must be emptied before closing")
		}
		w.Status = status
		w.StatusReason = reason
		return r.SaveWallet(ctx, w)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	s.logger.Field("user_id", userID).WithField("status", status).Info("wallet status changed")
	return nil
}

// UpdateBankAccount stores a new payout destination. Any change clears the
// verified flag until the gateway confirms the account name again.
func (s *service) UpdateBankAccount(ctx context.Context, userID uint, account models.BankAccount) (*models.Wallet, error) {
	account.Verified = false
	if err := s.validate.Struct(account); err != nil {
		return nil, apperr.Validation("INVALID_BANK_ACCOUNT", err.Error())
	}

	var updated *models.Wallet
	err := s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		w, err := r.GetWalletForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		w.BankAccount = account
		if err := r.SaveWallet(ctx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return updated, nil
}

// VerifyBankAccount resolves the stored account against the gateway and
// marks it verified, overwriting the account name with the resolved one.
func (s *service) VerifyBankAccount(ctx context.Context, userID uint) (*models.Wallet, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.BankAccount.Empty() {
		return nil, apperr.ErrBankAccountMissing
	}
	if s.gateway == nil {
		return nil, apperr.Gateway("no payment gateway configured", nil, false)
	}

	name, err := s.gateway.ResolveAccountName(ctx, w.BankAccount.AccountNumber, w.BankAccount.BankCode)
	if err != nil {
		s.metrics.RecordError("verify_bank_account", string(apperr.KindOf(err)))
		return nil, err
	}

	var updated *models.Wallet
	err = s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		locked, err := r.GetWalletForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		locked.BankAccount.AccountName = name
		locked.BankAccount.Verified = true
		if err := r.SaveWallet(ctx, locked); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Field("user_id", userID).Info("bank account verified")
	return updated, nil
}

func (s *service) cacheWallet(ctx context.Context, w *models.Wallet) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheWallet(ctx, w); err != nil {
		s.logger.Field("user_id", w.UserID).Warnf("failed to cache wallet: %v", err)
	}
}

func (s *service) invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWallet(ctx, userID); err != nil {
		s.logger.Field("user_id", userID).Warnf("failed to invalidate wallet cache: %v", err)
	}
}
