// Package withdrawal runs the payout approval workflow. A request commits
// a pending ledger transaction that reserves the funds; an admin approval
// pushes it through the payment gateway, and any failure after approval
// refunds the wallet through a compensating transaction.
package withdrawal

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/gateway"
	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/events"
	"ledgerpay/internal/services/ledger"
	"ledgerpay/internal/services/wallet"
)

// Config tunes fees and gateway retries.
type Config struct {
	FeeRate       decimal.Decimal
	MinimumAmount decimal.Decimal
	Retry         RetryPolicy
}

// Service drives withdrawals through their state machine.
type Service interface {
	Request(ctx context.Context, userID uint, amount decimal.Decimal, reference string) (*models.Transaction, error)
	Approve(ctx context.Context, transactionID string, approverID uint) (*models.Transaction, error)
	Reject(ctx context.Context, transactionID string, approverID uint, reason string) (*models.Transaction, error)
	Cancel(ctx context.Context, transactionID string, userID uint) (*models.Transaction, error)
	Get(ctx context.Context, transactionID string) (*models.Transaction, error)
}

type service struct {
	repo    repositories.LedgerRepository
	ledger  ledger.Service
	wallets wallet.Service
	gateway gateway.Gateway
	events  *events.Dispatcher
	config  Config
	logger  *logging.Logger
	metrics wallet.MetricsCollector
}

func NewService(
	repo repositories.LedgerRepository,
	ledgerSvc ledger.Service,
	walletSvc wallet.Service,
	gw gateway.Gateway,
	dispatcher *events.Dispatcher,
	config Config,
	logger *logging.Logger,
	metrics wallet.MetricsCollector,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if walletSvc == nil {
		panic("wallet service is required")
	}
	if gw == nil {
		panic("gateway is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	if config.Retry.MaxAttempts == 0 {
		config.Retry = DefaultRetryPolicy()
	}
	if config.MinimumAmount.IsZero() {
		config.MinimumAmount = decimal.NewFromInt(100)
	}
	if metrics == nil {
		metrics = &wallet.NoopMetricsCollector{}
	}

	return &service{
		repo:    repo,
		ledger:  ledgerSvc,
		wallets: walletSvc,
		gateway: gw,
		events:  dispatcher,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *service) Request(ctx context.Context, userID uint, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	if amount.LessThan(s.config.MinimumAmount) {
		return nil, apperr.Validation("AMOUNT_TOO_SMALL",
			fmt.Sprintf("withdrawal amount must be at least %s", s.config.MinimumAmount))
	}

	w, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WalletActive {
		return nil, apperr.ErrWalletNotActive
	}
	if w.BankAccount.Empty() {
		return nil, apperr.ErrBankAccountMissing
	}
	if !w.BankAccount.Verified {
		return nil, apperr.ErrBankAccountUnverified
	}
	if w.PendingWithdrawalID != nil {
		return nil, apperr.ErrWithdrawalPending
	}

	fee := s.Fee(amount)

	// Pre-flight limit check for a friendly error before anything commits.
	// The engine repeats it under the wallet lock, so a race here only
	// changes which call gets the rejection.
	if _, err := w.CheckWithdrawal(amount, fee, time.Now().UTC()); err != nil {
		return nil, err
	}

	entries := []models.Entry{
		models.WalletDebit(w.AccountType, userID, amount.Add(fee),
			fmt.Sprintf("withdrawal to %s", w.BankAccount.BankName)),
		models.CreditEntry(models.AccountGatewayPayable, amount, "withdrawal payout"),
	}
	if fee.IsPositive() {
		entries = append(entries, models.CreditEntry(models.AccountFeeRevenue, fee, "withdrawal fee"))
	}

	tx, err := s.ledger.Commit(ctx, ledger.Draft{
		Reference:   reference,
		Type:        models.TypeWalletWithdrawal,
		Entries:     entries,
		TotalAmount: amount,
		Currency:    w.Currency,
		Description: fmt.Sprintf("withdrawal of %s to %s ****%s", amount, w.BankAccount.BankName, last4(w.BankAccount.AccountNumber)),
		Metadata: models.JSON{
			"fee":            fee.String(),
			"bank_code":      w.BankAccount.BankCode,
			"account_number": w.BankAccount.AccountNumber,
		},
		Pending: true,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWithdrawal(string(models.StatusPending))
	s.logger.Field("transaction_id", tx.TransactionID).
		WithField("user_id", userID).
		WithField("amount", amount.String()).
		Info("withdrawal requested")
	return tx, nil
}

// Approve moves a pending withdrawal to processing, pays it out through
// the gateway, and settles the final status. The pending->processing
// transition is status-guarded, so of two racing approvals exactly one
// proceeds.
func (s *service) Approve(ctx context.Context, transactionID string, approverID uint) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TypeWalletWithdrawal {
		return nil, apperr.Validation("NOT_A_WITHDRAWAL", "transaction is not a withdrawal")
	}

	ok, err := s.repo.TransitionStatus(ctx, transactionID, models.StatusPending, models.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("NOT_PENDING", "withdrawal is no longer pending")
	}

	s.logger.Field("transaction_id", transactionID).
		WithField("approver_id", approverID).
		Info("withdrawal approved")

	return s.payout(ctx, tx)
}

// Reject cancels a pending withdrawal and refunds the reserved funds.
func (s *service) Reject(ctx context.Context, transactionID string, approverID uint, reason string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TypeWalletWithdrawal {
		return nil, apperr.Validation("NOT_A_WITHDRAWAL", "transaction is not a withdrawal")
	}

	if _, err := s.ledger.CompensateWithdrawal(ctx, transactionID, models.StatusPending, models.StatusCancelled, reason); err != nil {
		return nil, err
	}

	s.metrics.RecordWithdrawal(string(models.StatusCancelled))
	s.logger.Field("transaction_id", transactionID).
		WithField("approver_id", approverID).
		WithField("reason", reason).
		Info("withdrawal rejected")
	return s.repo.GetTransaction(ctx, transactionID)
}

// Cancel lets the requesting user withdraw their own pending request.
func (s *service) Cancel(ctx context.Context, transactionID string, userID uint) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TypeWalletWithdrawal {
		return nil, apperr.Validation("NOT_A_WITHDRAWAL", "transaction is not a withdrawal")
	}
	if tx.WalletDelta(userID).IsZero() {
		return nil, apperr.ErrTransactionNotFound
	}

	if _, err := s.ledger.CompensateWithdrawal(ctx, transactionID, models.StatusPending, models.StatusCancelled, "cancelled by requester"); err != nil {
		return nil, err
	}

	s.metrics.RecordWithdrawal(string(models.StatusCancelled))
	return s.repo.GetTransaction(ctx, transactionID)
}

func (s *service) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TypeWalletWithdrawal {
		return nil, apperr.ErrTransactionNotFound
	}
	return tx, nil
}

// Fee returns the fee charged for a withdrawal of the given amount.
func (s *service) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.config.FeeRate).Round(2)
}

func (s *service) payout(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	account := bankAccountFrom(tx)
	amount := tx.CreditTotal(models.AccountGatewayPayable)

	var result *gateway.TransferResult
	err := s.config.Retry.Do(ctx, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = s.gateway.InitiateTransfer(ctx, account, amount, tx.Reference)
		return attemptErr
	})
	if err == nil && result.Status == gateway.TransferFailed {
		err = apperr.Gateway("gateway declined the transfer", nil, false)
	}

	// Settle on a context that survives the admin's request being
	// cancelled mid-retry; the withdrawal must still reach a terminal
	// status.
	settleCtx := context.WithoutCancel(ctx)
	if err != nil {
		return s.settleFailed(settleCtx, tx, err)
	}
	return s.settleCompleted(settleCtx, tx)
}

func (s *service) settleCompleted(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	err := s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		ok, err := r.TransitionStatus(ctx, tx.TransactionID, models.StatusProcessing, models.StatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrInvalidTransition
		}
		now := time.Now().UTC()
		if err := r.SetAudit(ctx, tx.TransactionID, &now, nil); err != nil {
			return err
		}
		return clearPendingMarker(ctx, r, tx)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWithdrawal(string(models.StatusCompleted))
	s.emit(models.Event{
		Name:          models.EventWithdrawalCompleted,
		TransactionID: tx.TransactionID,
		UserID:        withdrawingUser(tx),
		Amount:        tx.TotalAmount,
	})
	s.logger.Field("transaction_id", tx.TransactionID).Info("withdrawal completed")
	return s.repo.GetTransaction(ctx, tx.TransactionID)
}

func (s *service) settleFailed(ctx context.Context, tx *models.Transaction, cause error) (*models.Transaction, error) {
	reason := fmt.Sprintf("gateway transfer failed: %v", cause)
	if _, err := s.ledger.CompensateWithdrawal(ctx, tx.TransactionID, models.StatusProcessing, models.StatusFailed, reason); err != nil {
		// Nothing was persisted: the withdrawal stays processing with
		// the funds still reserved, never terminal with the refund lost.
		s.logger.Field("transaction_id", tx.TransactionID).Errorf("withdrawal settlement failed: %v", err)
		return nil, err
	}

	s.metrics.RecordWithdrawal(string(models.StatusFailed))
	s.emit(models.Event{
		Name:          models.EventWithdrawalFailed,
		TransactionID: tx.TransactionID,
		UserID:        withdrawingUser(tx),
		Amount:        tx.TotalAmount,
		Reason:        cause.Error(),
	})
	s.logger.Field("transaction_id", tx.TransactionID).Warnf("withdrawal failed: %v", cause)
	return s.repo.GetTransaction(ctx, tx.TransactionID)
}

func (s *service) emit(event models.Event) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

func clearPendingMarker(ctx context.Context, r repositories.LedgerRepository, tx *models.Transaction) error {
	uid := withdrawingUser(tx)
	if uid == 0 {
		return nil
	}
	w, err := r.GetWalletForUpdate(ctx, uid)
	if err != nil {
		return err
	}
	if w.PendingWithdrawalID == nil || *w.PendingWithdrawalID != tx.TransactionID {
		return nil
	}
	w.PendingWithdrawalID = nil
	return r.SaveWallet(ctx, w)
}

// withdrawingUser is the user whose wallet the withdrawal debits.
func withdrawingUser(tx *models.Transaction) uint {
	for _, e := range tx.Entries {
		if e.Account.UserScoped() && e.UserID != nil && e.Debit.IsPositive() {
			return *e.UserID
		}
	}
	return 0
}

func bankAccountFrom(tx *models.Transaction) models.BankAccount {
	account := models.BankAccount{}
	if v, ok := tx.Metadata["account_number"].(string); ok {
		account.AccountNumber = v
	}
	if v, ok := tx.Metadata["bank_code"].(string); ok {
		account.BankCode = v
	}
	return account
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
