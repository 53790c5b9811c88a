// Package report builds read-only summaries over the transaction log.
package report

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
)

// VATSummary is what the platform owes the tax authority.
type VATSummary struct {
	Collected   decimal.Decimal `json:"collected"`
	Remitted    decimal.Decimal `json:"remitted"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// CommissionSummary aggregates platform commission revenue.
type CommissionSummary struct {
	TotalCommission decimal.Decimal `json:"total_commission"`
	OrderVolume     decimal.Decimal `json:"order_volume"`
}

// Service exposes aggregate views. It never mutates the ledger.
type Service interface {
	VAT(ctx context.Context) (*VATSummary, error)
	Commission(ctx context.Context) (*CommissionSummary, error)
	Statement(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error)
	WithdrawalVolume(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	repo repositories.LedgerRepository
}

func NewService(repo repositories.LedgerRepository) Service {
	if repo == nil {
		panic("repo is required")
	}
	return &service{repo: repo}
}

func (s *service) VAT(ctx context.Context) (*VATSummary, error) {
	collected, remitted, err := s.repo.SumVAT(ctx)
	if err != nil {
		return nil, err
	}
	return &VATSummary{
		Collected:   collected,
		Remitted:    remitted,
		Outstanding: collected.Sub(remitted),
	}, nil
}

func (s *service) Commission(ctx context.Context) (*CommissionSummary, error) {
	commission, err := s.repo.SumCommission(ctx)
	if err != nil {
		return nil, err
	}
	volume, err := s.repo.SumByType(ctx, models.TypeOrderPayment)
	if err != nil {
		return nil, err
	}
	return &CommissionSummary{
		TotalCommission: commission,
		OrderVolume:     volume,
	}, nil
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

func (s *service) WithdrawalVolume(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.SumByType(ctx, models.TypeWalletWithdrawal)
}
