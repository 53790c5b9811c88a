// Package memory provides an in-memory LedgerRepository. It backs unit
// tests and single-process development runs; the GORM repository is the
// production implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
)

type store struct {
	mu           sync.Mutex
	wallets      map[uint]*models.Wallet
	transactions map[string]*models.Transaction
	references   map[string]string
	order        []string
	nextEntryID  uint
}

// Repository implements repositories.LedgerRepository over process memory.
// A single mutex serializes units of work, which satisfies the per-wallet
// serialization requirement for a single instance.
type Repository struct {
	s    *store
	inTx bool
}

func New() *Repository {
	return &Repository{s: &store{
		wallets:      make(map[uint]*models.Wallet),
		transactions: make(map[string]*models.Transaction),
		references:   make(map[string]string),
	}}
}

func (r *Repository) ExecuteInTransaction(ctx context.Context, fn func(tx repositories.LedgerRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap := r.s.snapshot()
	if err := fn(&Repository{s: r.s, inTx: true}); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

func (r *Repository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *Repository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	defer r.lock()()
	if _, ok := r.s.wallets[wallet.UserID]; ok {
		return apperr.ErrWalletExists
	}
	if wallet.ID == 0 {
		wallet.ID = uint(len(r.s.wallets) + 1)
	}
	wallet.CreatedAt = time.Now().UTC()
	wallet.UpdatedAt = wallet.CreatedAt
	r.s.wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (r *Repository) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	defer r.lock()()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, apperr.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

// GetWalletForUpdate behaves like GetWallet; the unit-of-work mutex already
// serializes concurrent writers.
func (r *Repository) GetWalletForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	return r.GetWallet(ctx, userID)
}

func (r *Repository) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	defer r.lock()()
	if _, ok := r.s.wallets[wallet.UserID]; !ok {
		return apperr.ErrWalletNotFound
	}
	wallet.UpdatedAt = time.Now().UTC()
	r.s.wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	defer r.lock()()
	if _, ok := r.s.references[tx.Reference]; ok {
		return apperr.ErrDuplicateReference
	}
	if _, ok := r.s.transactions[tx.TransactionID]; ok {
		return apperr.ErrDuplicateReference
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	for i := range tx.Entries {
		r.s.nextEntryID++
		tx.Entries[i].ID = r.s.nextEntryID
		tx.Entries[i].TransactionID = tx.TransactionID
		tx.Entries[i].CreatedAt = now
	}
	r.s.transactions[tx.TransactionID] = cloneTransaction(tx)
	r.s.references[tx.Reference] = tx.TransactionID
	r.s.order = append(r.s.order, tx.TransactionID)
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	defer r.lock()()
	tx, ok := r.s.transactions[transactionID]
	if !ok {
		return nil, apperr.ErrTransactionNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *Repository) GetTransactionForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.GetTransaction(ctx, transactionID)
}

func (r *Repository) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	defer r.lock()()
	id, ok := r.s.references[reference]
	if !ok {
		return nil, apperr.ErrTransactionNotFound
	}
	return cloneTransaction(r.s.transactions[id]), nil
}

func (r *Repository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	defer r.lock()()
	_, ok := r.s.references[reference]
	return ok, nil
}

func (r *Repository) TransitionStatus(ctx context.Context, transactionID string, from, to models.TransactionStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, apperr.ErrInvalidTransition
	}
	defer r.lock()()
	tx, ok := r.s.transactions[transactionID]
	if !ok {
		return false, apperr.ErrTransactionNotFound
	}
	if tx.Status != from {
		return false, nil
	}
	tx.Status = to
	tx.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *Repository) SetAudit(ctx context.Context, transactionID string, approvedAt, reversedAt *time.Time) error {
	defer r.lock()()
	tx, ok := r.s.transactions[transactionID]
	if !ok {
		return apperr.ErrTransactionNotFound
	}
	if approvedAt != nil {
		tx.ApprovedAt = approvedAt
	}
	if reversedAt != nil {
		tx.ReversedAt = reversedAt
	}
	return nil
}

func (r *Repository) ListTransactionsForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	defer r.lock()()
	var out []models.Transaction
	for i := len(r.s.order) - 1; i >= 0; i-- {
		tx := r.s.transactions[r.s.order[i]]
		if !tx.WalletDelta(userID).IsZero() || touchesUser(tx, userID) {
			out = append(out, *cloneTransaction(tx))
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) CountTransactionsForUser(ctx context.Context, userID uint) (int64, error) {
	defer r.lock()()
	var count int64
	for _, tx := range r.s.transactions {
		if touchesUser(tx, userID) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) ListEntriesForUser(ctx context.Context, userID uint) ([]models.Entry, error) {
	defer r.lock()()
	var entries []models.Entry
	for _, id := range r.s.order {
		for _, e := range r.s.transactions[id].Entries {
			if e.UserID != nil && *e.UserID == userID {
				entries = append(entries, e)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (r *Repository) SumByType(ctx context.Context, txType models.TransactionType) (decimal.Decimal, error) {
	defer r.lock()()
	total := decimal.Zero
	for _, tx := range r.s.transactions {
		if tx.Type == txType && (tx.Status == models.StatusCompleted || tx.Status == models.StatusReversed) {
			total = total.Add(tx.TotalAmount)
		}
	}
	return total, nil
}

func (r *Repository) SumVAT(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	defer r.lock()()
	collected, remitted := decimal.Zero, decimal.Zero
	for _, tx := range r.s.transactions {
		if tx.Status != models.StatusCompleted && tx.Status != models.StatusReversed {
			continue
		}
		if tx.VAT.Collected {
			collected = collected.Add(tx.VAT.Amount)
		}
		if tx.Type == models.TypeVATRemittance && tx.Status == models.StatusCompleted {
			remitted = remitted.Add(tx.TotalAmount)
		}
	}
	return collected, remitted, nil
}

func (r *Repository) SumCommission(ctx context.Context) (decimal.Decimal, error) {
	defer r.lock()()
	total := decimal.Zero
	for _, tx := range r.s.transactions {
		if tx.Type == models.TypeOrderPayment && (tx.Status == models.StatusCompleted || tx.Status == models.StatusReversed) {
			total = total.Add(tx.Commission.PlatformAmount)
		}
	}
	return total, nil
}

func touchesUser(tx *models.Transaction, userID uint) bool {
	for _, e := range tx.Entries {
		if e.UserID != nil && *e.UserID == userID {
			return true
		}
	}
	return false
}

type snapshot struct {
	wallets      map[uint]*models.Wallet
	transactions map[string]*models.Transaction
	references   map[string]string
	order        []string
	nextEntryID  uint
}

func (s *store) snapshot() snapshot {
	snap := snapshot{
		wallets:      make(map[uint]*models.Wallet, len(s.wallets)),
		transactions: make(map[string]*models.Transaction, len(s.transactions)),
		references:   make(map[string]string, len(s.references)),
		order:        append([]string(nil), s.order...),
		nextEntryID:  s.nextEntryID,
	}
	for k, v := range s.wallets {
		snap.wallets[k] = cloneWallet(v)
	}
	for k, v := range s.transactions {
		snap.transactions[k] = cloneTransaction(v)
	}
	for k, v := range s.references {
		snap.references[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.wallets = snap.wallets
	s.transactions = snap.transactions
	s.references = snap.references
	s.order = snap.order
	s.nextEntryID = snap.nextEntryID
}

func cloneWallet(w *models.Wallet) *models.Wallet {
	cp := *w
	if w.PendingWithdrawalID != nil {
		id := *w.PendingWithdrawalID
		cp.PendingWithdrawalID = &id
	}
	if w.Meta.LastTransactionAt != nil {
		t := *w.Meta.LastTransactionAt
		cp.Meta.LastTransactionAt = &t
	}
	return &cp
}

func cloneTransaction(t *models.Transaction) *models.Transaction {
	cp := *t
	cp.Entries = make([]models.Entry, len(t.Entries))
	for i, e := range t.Entries {
		ce := e
		if e.UserID != nil {
			uid := *e.UserID
			ce.UserID = &uid
		}
		cp.Entries[i] = ce
	}
	if t.ParentTransactionID != nil {
		id := *t.ParentTransactionID
		cp.ParentTransactionID = &id
	}
	if t.ApprovedAt != nil {
		ts := *t.ApprovedAt
		cp.ApprovedAt = &ts
	}
	if t.ReversedAt != nil {
		ts := *t.ReversedAt
		cp.ReversedAt = &ts
	}
	if t.Metadata != nil {
		cp.Metadata = make(models.JSON, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
