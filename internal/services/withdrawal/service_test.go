package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/gateway"
	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/repositories/memory"
	"ledgerpay/internal/services/ledger"
	"ledgerpay/internal/services/wallet"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeGateway scripts transfer outcomes per attempt.
type fakeGateway struct {
	mu       sync.Mutex
	attempts int
	results  []error // error per attempt; nil means success
	onCall   func()  // invoked at the start of every transfer attempt
}

func (g *fakeGateway) InitiateTransfer(_ context.Context, _ models.BankAccount, _ decimal.Decimal, reference string) (*gateway.TransferResult, error) {
	if g.onCall != nil {
		g.onCall()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.attempts
	g.attempts++
	if idx < len(g.results) && g.results[idx] != nil {
		return nil, g.results[idx]
	}
	return &gateway.TransferResult{Reference: reference, Status: gateway.TransferSuccess}, nil
}

func (g *fakeGateway) ResolveAccountName(context.Context, string, string) (string, error) {
	return "ADA VENDOR", nil
}

func (g *fakeGateway) ListBanks(context.Context) ([]gateway.Bank, error) {
	return nil, nil
}

func (g *fakeGateway) attemptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// flakyState scripts a number of CreateTransaction failures, shared
// between a flakyRepo and the transactional repos it hands out.
type flakyState struct {
	mu             sync.Mutex
	createFailures int
}

func (s *flakyState) failNextCreate() {
	s.mu.Lock()
	s.createFailures++
	s.mu.Unlock()
}

func (s *flakyState) take() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createFailures > 0 {
		s.createFailures--
		return true
	}
	return false
}

// flakyRepo fails CreateTransaction on demand, inside or outside a unit
// of work, the way a database outage would.
type flakyRepo struct {
	repositories.LedgerRepository
	state *flakyState
}

func (f *flakyRepo) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if f.state.take() {
		return errors.New("storage unavailable")
	}
	return f.LedgerRepository.CreateTransaction(ctx, tx)
}

func (f *flakyRepo) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	return f.LedgerRepository.ExecuteInTransaction(ctx, func(r repositories.LedgerRepository) error {
		return fn(&flakyRepo{LedgerRepository: r, state: f.state})
	})
}

// cancelAwareRepo refuses new units of work once the call context is
// cancelled, the way a real database driver does.
type cancelAwareRepo struct {
	repositories.LedgerRepository
}

func (r *cancelAwareRepo) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.LedgerRepository.ExecuteInTransaction(ctx, fn)
}

func (r *cancelAwareRepo) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.LedgerRepository.GetTransaction(ctx, transactionID)
}

type fixture struct {
	repo    repositories.LedgerRepository
	ledger  ledger.Service
	wallets wallet.Service
	gateway *fakeGateway
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.New())
}

func newFixtureWith(t *testing.T, repo repositories.LedgerRepository) *fixture {
	t.Helper()
	log := logging.NewLogger()
	gw := &fakeGateway{}

	ledgerSvc := ledger.NewService(repo, nil, nil, log, nil)
	walletSvc := wallet.NewService(repo, nil, gw, wallet.WalletConfig{}, log, nil)
	svc := NewService(repo, ledgerSvc, walletSvc, gw, nil, Config{
		FeeRate:       dec("0.01"),
		MinimumAmount: dec("100"),
		Retry: RetryPolicy{
			MaxAttempts:    3,
			BaseDelay:      time.Millisecond,
			MaxDelay:       2 * time.Millisecond,
			AttemptTimeout: time.Second,
		},
	}, log, nil)

	return &fixture{repo: repo, ledger: ledgerSvc, wallets: walletSvc, gateway: gw, svc: svc}
}

// fundedWallet creates an active wallet with a verified bank account and
// the given balance, funded through a real deposit transaction.
func (f *fixture) fundedWallet(t *testing.T, userID uint, balance string) {
	t.Helper()
	ctx := context.Background()

	w, err := f.wallets.Create(ctx, userID, models.AccountWalletVendor)
	require.NoError(t, err)
	w.BankAccount = models.BankAccount{
		AccountName:   "Ada Vendor",
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "Test Bank",
		Verified:      true,
	}
	w.Limits = models.WalletLimits{
		DailyWithdrawal:   dec("5000"),
		MonthlyWithdrawal: dec("50000"),
		MinimumBalance:    dec("500"),
	}
	require.NoError(t, f.repo.SaveWallet(ctx, w))

	if balance != "0" {
		_, err = f.ledger.Commit(ctx, ledger.Draft{
			Reference: fmt.Sprintf("FUND-%d-%s", userID, balance),
			Type:      models.TypeWalletDeposit,
			Entries: []models.Entry{
				models.DebitEntry(models.AccountCash, dec(balance), "test funding"),
				models.WalletCredit(models.AccountWalletVendor, userID, dec(balance), "test funding"),
			},
			TotalAmount: dec(balance),
		})
		require.NoError(t, err)
	}
}

func (f *fixture) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	w, err := f.repo.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func TestRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	tx, err := f.svc.Request(ctx, 1, dec("4000"), "WD-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, models.TypeWalletWithdrawal, tx.Type)
	assert.True(t, tx.Balanced())
	// 4000 plus the 1% fee leave the wallet immediately.
	assert.True(t, f.balance(t, 1).Equal(dec("5960")))

	w, err := f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, w.PendingWithdrawalID)
	assert.Equal(t, tx.TransactionID, *w.PendingWithdrawalID)
	assert.True(t, w.Stats.DailyWithdrawn.Equal(dec("4000")))
}

func TestRequest_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	t.Run("below minimum", func(t *testing.T) {
		_, err := f.svc.Request(ctx, 1, dec("50"), "WD-MIN")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("daily limit", func(t *testing.T) {
		_, err := f.svc.Request(ctx, 1, dec("6000"), "WD-LIM")
		require.Error(t, err)
		assert.Equal(t, apperr.KindLimitExceeded, apperr.KindOf(err))
	})

	t.Run("unverified bank account", func(t *testing.T) {
		w, err := f.repo.GetWallet(ctx, 1)
		require.NoError(t, err)
		w.BankAccount.Verified = false
		require.NoError(t, f.repo.SaveWallet(ctx, w))

		_, err = f.svc.Request(ctx, 1, dec("1000"), "WD-UNV")
		assert.ErrorIs(t, err, apperr.ErrBankAccountUnverified)

		w.BankAccount.Verified = true
		require.NoError(t, f.repo.SaveWallet(ctx, w))
	})

	t.Run("suspended wallet", func(t *testing.T) {
		w, err := f.repo.GetWallet(ctx, 1)
		require.NoError(t, err)
		w.Status = models.WalletSuspended
		require.NoError(t, f.repo.SaveWallet(ctx, w))

		_, err = f.svc.Request(ctx, 1, dec("1000"), "WD-SUS")
		assert.ErrorIs(t, err, apperr.ErrWalletNotActive)
	})
}

func TestRequest_OnePendingPerWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	_, err := f.svc.Request(ctx, 1, dec("1000"), "WD-A")
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, 1, dec("1000"), "WD-B")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrWithdrawalPending)
}

func TestApprove_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	req, err := f.svc.Request(ctx, 1, dec("4000"), "WD-OK")
	require.NoError(t, err)

	tx, err := f.svc.Approve(ctx, req.TransactionID, 99)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.NotNil(t, tx.ApprovedAt)
	assert.Equal(t, 1, f.gateway.attemptCount())
	// Funds stay gone; only the pending marker clears.
	assert.True(t, f.balance(t, 1).Equal(dec("5960")))

	w, err := f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, w.PendingWithdrawalID)
	assert.True(t, w.Stats.DailyWithdrawn.Equal(dec("4000")))
	assert.True(t, w.Meta.TotalWithdrawals.Equal(dec("4000")))
}

func TestApprove_RetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")
	f.gateway.results = []error{
		apperr.Gateway("timeout", nil, true),
		apperr.Gateway("timeout", nil, true),
		nil,
	}

	req, err := f.svc.Request(ctx, 1, dec("1000"), "WD-RT")
	require.NoError(t, err)

	tx, err := f.svc.Approve(ctx, req.TransactionID, 99)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, 3, f.gateway.attemptCount())
}

func TestApprove_GatewayFailureRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")
	f.gateway.results = []error{
		apperr.Gateway("timeout", nil, true),
		apperr.Gateway("timeout", nil, true),
		apperr.Gateway("timeout", nil, true),
	}

	req, err := f.svc.Request(ctx, 1, dec("4000"), "WD-FAIL")
	require.NoError(t, err)
	require.True(t, f.balance(t, 1).Equal(dec("5960")))

	tx, err := f.svc.Approve(ctx, req.TransactionID, 99)
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.NotNil(t, tx.ReversedAt)
	// A withdrawal that never paid out carries no approval timestamp.
	assert.Nil(t, tx.ApprovedAt)
	assert.Equal(t, 3, f.gateway.attemptCount())
	// Amount and fee both return to the wallet.
	assert.True(t, f.balance(t, 1).Equal(dec("10000")))

	w, err := f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, w.PendingWithdrawalID)
	// The failed amount no longer counts against the daily cap.
	assert.True(t, w.Stats.DailyWithdrawn.IsZero())
}

func TestApprove_NonRetryableFailsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")
	f.gateway.results = []error{apperr.Gateway("invalid recipient", nil, false)}

	req, err := f.svc.Request(ctx, 1, dec("1000"), "WD-NR")
	require.NoError(t, err)

	tx, err := f.svc.Approve(ctx, req.TransactionID, 99)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, 1, f.gateway.attemptCount())
	assert.True(t, f.balance(t, 1).Equal(dec("10000")))
}

func TestReject_StorageFailureKeepsFundsReserved(t *testing.T) {
	state := &flakyState{}
	f := newFixtureWith(t, &flakyRepo{LedgerRepository: memory.New(), state: state})
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	req, err := f.svc.Request(ctx, 1, dec("4000"), "WD-ATOM")
	require.NoError(t, err)
	require.True(t, f.balance(t, 1).Equal(dec("5960")))

	// The refund write fails mid-rejection: the whole unit of work must
	// roll back, leaving the withdrawal pending and retryable.
	state.failNextCreate()
	_, err = f.svc.Reject(ctx, req.TransactionID, 99, "suspicious destination")
	require.Error(t, err)

	tx, err := f.repo.GetTransaction(ctx, req.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Nil(t, tx.ReversedAt)
	assert.True(t, f.balance(t, 1).Equal(dec("5960")))

	w, err := f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, w.PendingWithdrawalID)
	assert.Equal(t, req.TransactionID, *w.PendingWithdrawalID)

	// Storage recovers; the retried rejection lands in full.
	tx, err = f.svc.Reject(ctx, req.TransactionID, 99, "suspicious destination")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, tx.Status)
	assert.True(t, f.balance(t, 1).Equal(dec("10000")))

	w, err = f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, w.PendingWithdrawalID)
}

func TestApprove_CallerDisconnectStillSettles(t *testing.T) {
	f := newFixtureWith(t, &cancelAwareRepo{LedgerRepository: memory.New()})
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	// The admin connection drops during the first transfer attempt. The
	// withdrawal must still land on a terminal status with the refund.
	approveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.gateway.onCall = cancel
	f.gateway.results = []error{apperr.Gateway("timeout", nil, true)}

	req, err := f.svc.Request(ctx, 1, dec("4000"), "WD-DC")
	require.NoError(t, err)

	tx, err := f.svc.Approve(approveCtx, req.TransactionID, 99)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.True(t, f.balance(t, 1).Equal(dec("10000")))

	w, err := f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, w.PendingWithdrawalID)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	req, err := f.svc.Request(ctx, 1, dec("4000"), "WD-REJ")
	require.NoError(t, err)

	tx, err := f.svc.Reject(ctx, req.TransactionID, 99, "suspicious destination")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, tx.Status)
	assert.True(t, f.balance(t, 1).Equal(dec("10000")))
	assert.Equal(t, 0, f.gateway.attemptCount())

	w, err := f.repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, w.PendingWithdrawalID)
	assert.True(t, w.Stats.DailyWithdrawn.IsZero())

	// A rejected withdrawal cannot be approved afterwards.
	_, err = f.svc.Approve(ctx, req.TransactionID, 99)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")
	f.fundedWallet(t, 2, "10000")

	req, err := f.svc.Request(ctx, 1, dec("1000"), "WD-CAN")
	require.NoError(t, err)

	// Another user cannot cancel it.
	_, err = f.svc.Cancel(ctx, req.TransactionID, 2)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	tx, err := f.svc.Cancel(ctx, req.TransactionID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, tx.Status)
	assert.True(t, f.balance(t, 1).Equal(dec("10000")))
}

func TestApproveRejectRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	req, err := f.svc.Request(ctx, 1, dec("1000"), "WD-RACE")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = f.svc.Approve(ctx, req.TransactionID, 99)
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = f.svc.Reject(ctx, req.TransactionID, 99, "race")
	}()
	wg.Wait()

	// Exactly one side wins the pending->X transition.
	winners := 0
	if approveErr == nil {
		winners++
	}
	if rejectErr == nil {
		winners++
	}
	assert.Equal(t, 1, winners, "approve err=%v reject err=%v", approveErr, rejectErr)

	tx, err := f.repo.GetTransaction(ctx, req.TransactionID)
	require.NoError(t, err)
	if approveErr == nil {
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.True(t, f.balance(t, 1).Equal(dec("8990")))
	} else {
		assert.Equal(t, models.StatusCancelled, tx.Status)
		assert.True(t, f.balance(t, 1).Equal(dec("10000")))
	}
}

func TestConcurrentRequests_OneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Request(ctx, 1, dec("1000"), "WD-C-"+string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	// Exactly one debit landed.
	assert.True(t, f.balance(t, 1).Equal(dec("8990")))
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundedWallet(t, 1, "10000")

	req, err := f.svc.Request(ctx, 1, dec("1000"), "WD-GET")
	require.NoError(t, err)

	tx, err := f.svc.Get(ctx, req.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, req.TransactionID, tx.TransactionID)

	_, err = f.svc.Get(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
