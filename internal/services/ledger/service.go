// Package ledger implements the transaction engine: validation and atomic
// commit of balanced double-entry transactions against wallet balances,
// plus compensating reversals over the append-only transaction log.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/commission"
	"ledgerpay/internal/services/events"
	"ledgerpay/internal/services/wallet"
)

type service struct {
	repo    repositories.LedgerRepository
	cache   CacheInvalidator
	events  *events.Dispatcher
	logger  *logging.Logger
	metrics wallet.MetricsCollector
}

// NewService creates the transaction engine.
func NewService(
	repo repositories.LedgerRepository,
	cache CacheInvalidator,
	dispatcher *events.Dispatcher,
	logger *logging.Logger,
	metrics wallet.MetricsCollector,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if metrics == nil {
		metrics = &wallet.NoopMetricsCollector{}
	}
	return &service{
		repo:    repo,
		cache:   cache,
		events:  dispatcher,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *service) Commit(ctx context.Context, draft Draft) (*models.Transaction, error) {
	tx, err := s.buildTransaction(draft)
	if err != nil {
		return nil, err
	}

	err = s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		exists, err := r.ReferenceExists(ctx, tx.Reference)
		if err != nil {
			return err
		}
		if exists {
			return apperr.ErrDuplicateReference
		}
		if err := s.applyToWallets(ctx, r, tx); err != nil {
			return err
		}
		return r.CreateTransaction(ctx, tx)
	})
	if err != nil {
		s.metrics.RecordError("commit", string(apperr.KindOf(err)))
		return nil, err
	}

	s.afterCommit(ctx, tx)
	return tx, nil
}

func (s *service) Reverse(ctx context.Context, transactionID, reason string) (*models.Transaction, error) {
	var rev *models.Transaction
	err := s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		orig, err := r.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if orig.Status == models.StatusReversed {
			return apperr.ErrAlreadyReversed
		}
		if orig.Status != models.StatusCompleted {
			return apperr.ErrInvalidTransition
		}

		rev = reversalOf(orig, reason)
		if err := s.applyToWallets(ctx, r, rev); err != nil {
			return err
		}
		if err := r.CreateTransaction(ctx, rev); err != nil {
			return err
		}

		ok, err := r.TransitionStatus(ctx, orig.TransactionID, models.StatusCompleted, models.StatusReversed)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrInvalidTransition
		}
		now := time.Now().UTC()
		return r.SetAudit(ctx, orig.TransactionID, nil, &now)
	})
	if err != nil {
		s.metrics.RecordError("reverse", string(apperr.KindOf(err)))
		return nil, err
	}

	s.afterCommit(ctx, rev)
	s.emit(models.Event{
		Name:          models.EventTransactionReversed,
		TransactionID: transactionID,
		Amount:        rev.TotalAmount,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	})
	return rev, nil
}

func (s *service) CompensateWithdrawal(ctx context.Context, transactionID string, from, to models.TransactionStatus, reason string) (*models.Transaction, error) {
	var rev *models.Transaction
	err := s.repo.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		orig, err := r.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if orig.Type != models.TypeWalletWithdrawal {
			return apperr.ErrInvalidTransition
		}
		if orig.ReversedAt != nil {
			return apperr.ErrAlreadyReversed
		}

		// Terminal status and refund commit or roll back together; a
		// withdrawal can never end up terminal with the funds still gone.
		ok, err := r.TransitionStatus(ctx, transactionID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("INVALID_STATE", fmt.Sprintf("withdrawal is no longer %s", from))
		}

		rev = reversalOf(orig, reason)
		if err := s.applyToWallets(ctx, r, rev); err != nil {
			return err
		}
		if err := s.releaseReservation(ctx, r, orig); err != nil {
			return err
		}
		if err := r.CreateTransaction(ctx, rev); err != nil {
			return err
		}

		now := time.Now().UTC()
		return r.SetAudit(ctx, orig.TransactionID, nil, &now)
	})
	if err != nil {
		s.metrics.RecordError("compensate_withdrawal", string(apperr.KindOf(err)))
		return nil, err
	}

	s.afterCommit(ctx, rev)
	return rev, nil
}

func (s *service) SettleOrder(ctx context.Context, order commission.OrderInput, reference string) (*models.Transaction, error) {
	breakdown, err := commission.Calculate(order)
	if err != nil {
		return nil, err
	}

	return s.Commit(ctx, Draft{
		Reference:   reference,
		Type:        models.TypeOrderPayment,
		Entries:     breakdown.Entries,
		TotalAmount: order.OrderTotal,
		Description: fmt.Sprintf("settlement of order %s", order.OrderReference),
		VAT:         breakdown.VAT,
		Commission:  breakdown.Commission,
	})
}

func (s *service) RemitVAT(ctx context.Context, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.ErrInvalidAmount
	}
	entries := []models.Entry{
		models.DebitEntry(models.AccountVATPayable, amount, "VAT remittance"),
		models.CreditEntry(models.AccountCash, amount, "VAT remittance"),
	}
	for i := range entries {
		entries[i].Position = i
	}
	return s.Commit(ctx, Draft{
		Reference:   reference,
		Type:        models.TypeVATRemittance,
		Entries:     entries,
		TotalAmount: amount,
		Description: "remittance of collected VAT",
		VAT:         models.VATDetails{Amount: amount, Remitted: true},
	})
}

func (s *service) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.repo.GetTransaction(ctx, transactionID)
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return s.repo.GetTransactionByReference(ctx, reference)
}

func (s *service) Statement(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txs, err := s.repo.ListTransactionsForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTransactionsForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (s *service) ReplayBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	entries, err := s.repo.ListEntriesForUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Delta())
	}
	return balance, nil
}

// buildTransaction validates a draft and materializes it. Validation
// failures happen before any persistence: a rejected draft leaves no trace.
func (s *service) buildTransaction(draft Draft) (*models.Transaction, error) {
	if draft.Reference == "" {
		return nil, apperr.Validation("MISSING_REFERENCE", "transaction reference is required")
	}
	if !draft.Type.Valid() {
		return nil, apperr.Validation("INVALID_TYPE", "unknown transaction type")
	}
	if len(draft.Entries) == 0 {
		return nil, apperr.ErrEmptyEntries
	}

	for _, e := range draft.Entries {
		if !e.Account.Valid() {
			return nil, apperr.ErrUnknownAccount
		}
		if e.Account.UserScoped() && e.UserID == nil {
			return nil, apperr.Validation("MISSING_USER", fmt.Sprintf("entry on %s requires a user id", e.Account))
		}
		if !e.Account.UserScoped() && e.UserID != nil {
			return nil, apperr.Validation("UNEXPECTED_USER", fmt.Sprintf("entry on %s must not carry a user id", e.Account))
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return nil, apperr.ErrInvalidAmount
		}
		if e.Debit.IsZero() == e.Credit.IsZero() {
			return nil, apperr.Validation("INVALID_ENTRY", "exactly one of debit and credit must be set")
		}
	}

	status := models.StatusCompleted
	if draft.Pending {
		if draft.Type != models.TypeWalletWithdrawal {
			return nil, apperr.Validation("INVALID_STATUS", "only withdrawals commit as pending")
		}
		status = models.StatusPending
	}

	tx := &models.Transaction{
		TransactionID:       uuid.NewString(),
		Reference:           draft.Reference,
		Type:                draft.Type,
		Status:              status,
		Entries:             draft.Entries,
		TotalAmount:         draft.TotalAmount,
		Currency:            draft.Currency,
		Description:         draft.Description,
		Reason:              draft.Reason,
		VAT:                 draft.VAT,
		Commission:          draft.Commission,
		Metadata:            draft.Metadata,
		ParentTransactionID: draft.ParentTransactionID,
	}
	if tx.Currency == "" {
		tx.Currency = "NGN"
	}
	for i := range tx.Entries {
		tx.Entries[i].Position = i
		tx.Entries[i].TransactionID = tx.TransactionID
	}

	if !tx.Balanced() {
		return nil, apperr.ErrUnbalancedEntries
	}
	return tx, nil
}

// applyToWallets locks every wallet the transaction touches, in ascending
// user id order, and applies the signed entry deltas plus the running
// metadata totals. Withdrawal drafts additionally re-check limits and
// reserve the pending-withdrawal slot under the same lock.
func (s *service) applyToWallets(ctx context.Context, r repositories.LedgerRepository, tx *models.Transaction) error {
	now := time.Now().UTC()
	for _, uid := range touchedUsers(tx) {
		w, err := r.GetWalletForUpdate(ctx, uid)
		if err != nil {
			return err
		}

		delta := tx.WalletDelta(uid)
		// Compensating transactions are exempt from the status gate:
		// a suspended or frozen wallet can still be made whole.
		if delta.IsNegative() && w.Status != models.WalletActive && tx.ParentTransactionID == nil {
			return apperr.ErrWalletNotActive
		}
		newBalance := w.Balance.Add(delta)
		if newBalance.IsNegative() {
			return apperr.ErrInsufficientBalance
		}

		if tx.Type == models.TypeWalletWithdrawal && tx.Status == models.StatusPending && delta.IsNegative() {
			if w.PendingWithdrawalID != nil {
				return apperr.ErrWithdrawalPending
			}
			amount := tx.CreditTotal(models.AccountGatewayPayable)
			fee := tx.CreditTotal(models.AccountFeeRevenue)
			// Limits were checked at request time; check again under
			// the wallet lock so racing requests cannot oversubscribe.
			if _, err := w.CheckWithdrawal(amount, fee, now); err != nil {
				return err
			}
			w.Stats.Record(amount, now)
			w.Meta.TotalWithdrawals = w.Meta.TotalWithdrawals.Add(amount)
			w.PendingWithdrawalID = &tx.TransactionID
		}

		w.Balance = newBalance
		s.updateTotals(w, tx, delta)
		w.Meta.LastTransactionAt = &now

		if err := r.SaveWallet(ctx, w); err != nil {
			return err
		}
		s.metrics.RecordBalanceChange(uid, w.Balance.Sub(delta).InexactFloat64(), w.Balance.InexactFloat64())
	}
	return nil
}

// releaseReservation undoes the withdrawal-stat reservation made when the
// original withdrawal committed as pending.
func (s *service) releaseReservation(ctx context.Context, r repositories.LedgerRepository, orig *models.Transaction) error {
	now := time.Now().UTC()
	for _, uid := range touchedUsers(orig) {
		if orig.WalletDelta(uid).Sign() >= 0 {
			continue
		}
		w, err := r.GetWalletForUpdate(ctx, uid)
		if err != nil {
			return err
		}
		amount := orig.CreditTotal(models.AccountGatewayPayable)
		w.Stats.Release(amount, now)
		w.Meta.TotalWithdrawals = decimal.Max(decimal.Zero, w.Meta.TotalWithdrawals.Sub(amount))
		if w.PendingWithdrawalID != nil && *w.PendingWithdrawalID == orig.TransactionID {
			w.PendingWithdrawalID = nil
		}
		if err := r.SaveWallet(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) updateTotals(w *models.Wallet, tx *models.Transaction, delta decimal.Decimal) {
	switch tx.Type {
	case models.TypeOrderPayment:
		if delta.IsPositive() {
			w.Meta.TotalEarnings = w.Meta.TotalEarnings.Add(delta)
		}
		// Commission and VAT attribute to the vendor wallet the order
		// settled into.
		if w.AccountType == models.AccountWalletVendor {
			w.Meta.TotalCommissions = w.Meta.TotalCommissions.Add(tx.Commission.PlatformAmount)
			w.Meta.TotalVATCollected = w.Meta.TotalVATCollected.Add(tx.VAT.Amount)
		}
	case models.TypeWalletDeposit, models.TypeWalletTransfer:
		if delta.IsPositive() {
			w.Meta.TotalEarnings = w.Meta.TotalEarnings.Add(delta)
		}
	}
}

func (s *service) afterCommit(ctx context.Context, tx *models.Transaction) {
	for _, uid := range touchedUsers(tx) {
		if s.cache != nil {
			if err := s.cache.InvalidateWallet(ctx, uid); err != nil {
				s.logger.Field("user_id", uid).Warnf("failed to invalidate wallet cache: %v", err)
			}
		}
	}
	s.metrics.RecordTransaction(string(tx.Type), tx.TotalAmount.InexactFloat64())
	s.logger.WithField("transaction_id", tx.TransactionID).
		WithField("type", string(tx.Type)).
		WithField("status", string(tx.Status)).
		Info("transaction committed")
}

func (s *service) emit(event models.Event) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

// reversalOf builds the compensating transaction: every entry swapped,
// same magnitudes, linked to the original. Order payments reverse as
// refunds; everything else as a system adjustment.
func reversalOf(orig *models.Transaction, reason string) *models.Transaction {
	revType := models.TypeSystemAdjustment
	if orig.Type == models.TypeOrderPayment {
		revType = models.TypeOrderRefund
	}

	parent := orig.TransactionID
	rev := &models.Transaction{
		TransactionID:       uuid.NewString(),
		Reference:           "REV-" + orig.Reference,
		Type:                revType,
		Status:              models.StatusCompleted,
		TotalAmount:         orig.TotalAmount,
		Currency:            orig.Currency,
		Description:         fmt.Sprintf("reversal of %s", orig.TransactionID),
		Reason:              reason,
		ParentTransactionID: &parent,
	}
	rev.Entries = make([]models.Entry, len(orig.Entries))
	for i, e := range orig.Entries {
		swapped := models.Entry{
			TransactionID: rev.TransactionID,
			Position:      i,
			Account:       e.Account,
			Debit:         e.Credit,
			Credit:        e.Debit,
			Description:   "reversal: " + e.Description,
		}
		if e.UserID != nil {
			uid := *e.UserID
			swapped.UserID = &uid
		}
		rev.Entries[i] = swapped
	}
	return rev
}

// touchedUsers returns the distinct user ids of user-scoped entries in
// ascending order, which is also the wallet locking order.
func touchedUsers(tx *models.Transaction) []uint {
	seen := map[uint]bool{}
	var ids []uint
	for _, e := range tx.Entries {
		if e.Account.UserScoped() && e.UserID != nil && !seen[*e.UserID] {
			seen[*e.UserID] = true
			ids = append(ids, *e.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
