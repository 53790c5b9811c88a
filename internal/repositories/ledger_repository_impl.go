package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a GORM-backed ledger repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(tx LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	err := r.db.WithContext(ctx).Create(wallet).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrWalletExists
	}
	return err
}

func (r *ledgerRepository) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *ledgerRepository) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Save(wallet).Error
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	err := r.db.WithContext(ctx).Create(tx).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrDuplicateReference
	}
	return err
}

func (r *ledgerRepository) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.getTransaction(ctx, transactionID, false)
}

func (r *ledgerRepository) GetTransactionForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.getTransaction(ctx, transactionID, true)
}

func (r *ledgerRepository) getTransaction(ctx context.Context, transactionID string, forUpdate bool) (*models.Transaction, error) {
	var tx models.Transaction
	q := r.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("transaction_id = ?", transactionID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *ledgerRepository) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("reference = ?", reference).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *ledgerRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("reference = ?", reference).Count(&count).Error
	return count > 0, err
}

func (r *ledgerRepository) TransitionStatus(ctx context.Context, transactionID string, from, to models.TransactionStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, apperr.ErrInvalidTransition
	}
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ledgerRepository) SetAudit(ctx context.Context, transactionID string, approvedAt, reversedAt *time.Time) error {
	updates := map[string]interface{}{}
	if approvedAt != nil {
		updates["approved_at"] = approvedAt
	}
	if reversedAt != nil {
		updates["reversed_at"] = reversedAt
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(updates).Error
}

func (r *ledgerRepository) ListTransactionsForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Entry{}).
		Distinct("transaction_id").
		Where("user_id = ?", userID).
		Pluck("transaction_id", &ids).Error
	if err != nil {
		return nil, err
	}

	var txs []models.Transaction
	err = r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("transaction_id IN ?", ids).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&txs).Error
	return txs, err
}

func (r *ledgerRepository) CountTransactionsForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Entry{}).
		Distinct("transaction_id").
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *ledgerRepository) ListEntriesForUser(ctx context.Context, userID uint) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) SumByType(ctx context.Context, txType models.TransactionType) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("SUM(total_amount)").
		Where("type = ? AND status IN ?", txType, []models.TransactionStatus{models.StatusCompleted, models.StatusReversed}).
		Scan(&total).Error
	if err != nil || !total.Valid {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}

func (r *ledgerRepository) SumVAT(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var collected, remitted decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("SUM(vat_amount)").
		Where("vat_collected = ? AND status IN ?", true, []models.TransactionStatus{models.StatusCompleted, models.StatusReversed}).
		Scan(&collected).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	err = r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("SUM(total_amount)").
		Where("type = ? AND status = ?", models.TypeVATRemittance, models.StatusCompleted).
		Scan(&remitted).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return collected.Decimal, remitted.Decimal, nil
}

func (r *ledgerRepository) SumCommission(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("SUM(commission_platform_amount)").
		Where("type = ? AND status IN ?", models.TypeOrderPayment, []models.TransactionStatus{models.StatusCompleted, models.StatusReversed}).
		Scan(&total).Error
	if err != nil || !total.Valid {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}
