package gateway

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/payout"

	"ledgerpay/internal/config"
	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
)

// StripeProvider executes withdrawals as Stripe payouts. It is used for
// wallets settled through Stripe instead of a local bank-transfer rail;
// bank-account resolution is not part of Stripe's API, so those calls
// report unsupported and the caller falls back to manual verification.
type StripeProvider struct {
	currency string
}

func NewStripeProvider() *StripeProvider {
	stripe.Key = config.GetEnv("STRIPE_SECRET_KEY", "")
	return &StripeProvider{
		currency: config.GetEnv("STRIPE_PAYOUT_CURRENCY", "usd"),
	}
}

func (s *StripeProvider) InitiateTransfer(ctx context.Context, account models.BankAccount, amount decimal.Decimal, reference string) (*TransferResult, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(amount.Shift(2).IntPart()),
		Currency: stripe.String(s.currency),
		Method:   stripe.String("standard"),
	}
	params.Context = ctx
	params.SetIdempotencyKey(reference)
	params.AddMetadata("reference", reference)
	params.AddMetadata("bank_code", account.BankCode)
	params.AddMetadata("account_number", account.AccountNumber)

	p, err := payout.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			retryable := stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429
			return nil, apperr.Gateway("stripe payout failed", err, retryable)
		}
		return nil, apperr.Gateway("stripe payout failed", err, true)
	}

	result := &TransferResult{Reference: reference, Status: TransferPending}
	switch p.Status {
	case stripe.PayoutStatusPaid:
		result.Status = TransferSuccess
	case stripe.PayoutStatusFailed, stripe.PayoutStatusCanceled:
		result.Status = TransferFailed
	}
	return result, nil
}

func (s *StripeProvider) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	return "", apperr.Gateway("account resolution is not supported by this provider", nil, false)
}

func (s *StripeProvider) ListBanks(ctx context.Context) ([]Bank, error) {
	return nil, apperr.Gateway("bank listing is not supported by this provider", nil, false)
}
