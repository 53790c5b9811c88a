package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/gateway"
	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeGateway struct {
	resolvedName string
	resolveErr   error
	resolveCalls int
}

func (g *fakeGateway) InitiateTransfer(context.Context, models.BankAccount, decimal.Decimal, string) (*gateway.TransferResult, error) {
	return &gateway.TransferResult{Status: gateway.TransferSuccess}, nil
}

func (g *fakeGateway) ResolveAccountName(context.Context, string, string) (string, error) {
	g.resolveCalls++
	if g.resolveErr != nil {
		return "", g.resolveErr
	}
	return g.resolvedName, nil
}

func (g *fakeGateway) ListBanks(context.Context) ([]gateway.Bank, error) {
	return []gateway.Bank{{Name: "Test Bank", Code: "058"}}, nil
}

func newTestService(t *testing.T, gw gateway.Gateway) (Service, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	svc := NewService(repo, nil, gw, WalletConfig{}, logging.NewLogger(), &NoopMetricsCollector{})
	return svc, repo
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)
	assert.Equal(t, models.WalletActive, w.Status)
	assert.Equal(t, "NGN", w.Currency)
	assert.True(t, w.Balance.IsZero())
	// Vendor defaults applied.
	assert.True(t, w.Limits.DailyWithdrawal.Equal(dec("500000")))

	// One wallet per user.
	_, err = svc.Create(ctx, 1, models.AccountWalletVendor)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrWalletExists)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 0, models.AccountWalletVendor)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, 2, models.AccountCash)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCheckWithdrawalLimits(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)
	w.Balance = dec("10000")
	w.Limits = models.WalletLimits{
		DailyWithdrawal:   dec("5000"),
		MonthlyWithdrawal: dec("50000"),
		MinimumBalance:    dec("500"),
	}
	require.NoError(t, repo.SaveWallet(ctx, w))

	// 4000 fits under the daily cap with 10000 on balance.
	require.NoError(t, svc.CheckWithdrawalLimits(ctx, 1, dec("4000"), decimal.Zero))

	// After 4000 is consumed, another 2000 breaches the daily cap.
	w.Stats.Record(dec("4000"), time.Now().UTC())
	w.Balance = dec("6000")
	require.NoError(t, repo.SaveWallet(ctx, w))

	err = svc.CheckWithdrawalLimits(ctx, 1, dec("2000"), decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, apperr.KindLimitExceeded, apperr.KindOf(err))

	var domainErr *apperr.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.NotNil(t, domainErr.Usage)
	assert.True(t, domainErr.Usage.DailyWithdrawn.Equal(dec("4000")))
	assert.True(t, domainErr.Usage.DailyLimit.Equal(dec("5000")))

	// 1000 still fits.
	require.NoError(t, svc.CheckWithdrawalLimits(ctx, 1, dec("1000"), decimal.Zero))

	// The minimum balance floor counts the fee as well: 1000 + fee 4600
	// would leave 400, below the 500 floor.
	err = svc.CheckWithdrawalLimits(ctx, 1, dec("1000"), dec("4600"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindLimitExceeded, apperr.KindOf(err))
}

func TestCheckWithdrawalLimits_InactiveWallet(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	w, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)
	w.Status = models.WalletSuspended
	require.NoError(t, repo.SaveWallet(ctx, w))

	err = svc.CheckWithdrawalLimits(ctx, 1, dec("100"), decimal.Zero)
	assert.ErrorIs(t, err, apperr.ErrWalletNotActive)
}

func TestUpdateBankAccount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)

	w, err := svc.UpdateBankAccount(ctx, 1, models.BankAccount{
		AccountName:   "Ada Vendor",
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "Test Bank",
		Verified:      true, // must be ignored
	})
	require.NoError(t, err)
	assert.False(t, w.BankAccount.Verified)
	assert.Equal(t, "0123456789", w.BankAccount.AccountNumber)
}

func TestUpdateBankAccount_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)

	tests := []struct {
		name    string
		account models.BankAccount
	}{
		{"short account number", models.BankAccount{AccountName: "A", AccountNumber: "12345", BankCode: "058", BankName: "B"}},
		{"non-numeric account number", models.BankAccount{AccountName: "A", AccountNumber: "01234abcde", BankCode: "058", BankName: "B"}},
		{"missing bank code", models.BankAccount{AccountName: "A", AccountNumber: "0123456789", BankName: "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateBankAccount(ctx, 1, tt.account)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestVerifyBankAccount(t *testing.T) {
	gw := &fakeGateway{resolvedName: "ADA VENDOR"}
	svc, _ := newTestService(t, gw)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)

	// No account on file yet.
	_, err = svc.VerifyBankAccount(ctx, 1)
	assert.ErrorIs(t, err, apperr.ErrBankAccountMissing)

	_, err = svc.UpdateBankAccount(ctx, 1, models.BankAccount{
		AccountName:   "Ada Vendor",
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "Test Bank",
	})
	require.NoError(t, err)

	w, err := svc.VerifyBankAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.BankAccount.Verified)
	// The resolved name replaces whatever the user typed.
	assert.Equal(t, "ADA VENDOR", w.BankAccount.AccountName)
	assert.Equal(t, 1, gw.resolveCalls)
}

func TestVerifyBankAccount_GatewayFailure(t *testing.T) {
	gw := &fakeGateway{resolveErr: apperr.Gateway("could not resolve account", nil, false)}
	svc, repo := newTestService(t, gw)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)
	_, err = svc.UpdateBankAccount(ctx, 1, models.BankAccount{
		AccountName:   "Ada Vendor",
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "Test Bank",
	})
	require.NoError(t, err)

	_, err = svc.VerifyBankAccount(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))

	w, err := repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.False(t, w.BankAccount.Verified)
}

func TestSetStatus(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, 1, models.WalletSuspended, "chargeback review"))
	w, err := repo.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.WalletSuspended, w.Status)
	assert.Equal(t, "chargeback review", w.StatusReason)

	err = svc.SetStatus(ctx, 1, "hibernating", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSetStatus_CloseRequiresEmptyWallet(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	w, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)
	w.Balance = dec("10")
	require.NoError(t, repo.SaveWallet(ctx, w))

	err = svc.SetStatus(ctx, 1, models.WalletClosed, "offboarding")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGetSnapshot(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	w, err := svc.Create(ctx, 1, models.AccountWalletVendor)
	require.NoError(t, err)
	w.Balance = dec("10000")
	w.Limits.MinimumBalance = dec("500")
	require.NoError(t, repo.SaveWallet(ctx, w))

	snap, err := svc.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.True(t, snap.Balance.Equal(dec("10000")))
	assert.True(t, snap.Available.Equal(dec("9500")))
	assert.False(t, snap.HasPendingOut)
	assert.True(t, snap.Usage.DailyLimit.Equal(w.Limits.DailyWithdrawal))
}

func TestGetWallet_NotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.GetWallet(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrWalletNotFound)
}
