package memoryRepo

import (
	"context"
	"time"

	ledgerRepo "installhub/database/repository/ledger"
	"installhub/domain"
	"installhub/models"

	"github.com/google/uuid"
)

var _ ledgerRepo.LedgerRepository = (*LedgerRepo)(nil)

type LedgerRepo struct{ s *Store }

func applyDelta(w *models.Wallet, d models.WalletDelta) {
	w.Balance += d.Balance
	w.TotalSpent += d.TotalSpent
	w.TotalEarned += d.TotalEarned
	w.TotalTopUps += d.TotalTopUps
}

func (r *LedgerRepo) Post(ctx context.Context, entry models.PostEntry) (*models.Transaction, *models.Wallet, error) {
	defer r.s.lock(ctx)()
	st := &r.s.st
	now := time.Now().UTC()
	key := walletKey{entry.Kind, entry.OwnerID}

	if entry.Reference != "" {
		for _, t := range st.txns {
			if t.WalletKind == entry.Kind && t.OwnerID == entry.OwnerID && t.Reference == entry.Reference {
				return nil, nil, domain.New(domain.CodeConflict, "reference %s already posted", entry.Reference)
			}
		}
	}

	w, exists := st.wallets[key]
	if entry.Amount < 0 && (!exists || w.Balance < -entry.Amount) {
		return nil, nil, domain.New(domain.CodeInsufficientFunds,
			"%s wallet %s cannot cover %d", entry.Kind, entry.OwnerID, -entry.Amount)
	}
	if !exists {
		w = models.Wallet{Kind: entry.Kind, OwnerID: entry.OwnerID, CreatedAt: now}
	}
	applyDelta(&w, models.DeltaFor(entry.Kind, entry.Type, entry.Amount))
	w.UpdatedAt = now
	st.wallets[key] = w

	txn := models.Transaction{
		ID:           uuid.New().String(),
		WalletKind:   entry.Kind,
		OwnerID:      entry.OwnerID,
		Amount:       entry.Amount,
		Type:         entry.Type,
		BookingID:    entry.BookingID,
		Description:  entry.Description,
		Reference:    entry.Reference,
		BalanceAfter: w.Balance,
		CreatedAt:    now,
	}
	st.txns = append(st.txns, txn)
	return &txn, &w, nil
}

func (r *LedgerRepo) GetWallet(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error) {
	defer r.s.lock(ctx)()
	w, ok := r.s.st.wallets[walletKey{kind, ownerID}]
	if !ok {
		return &models.Wallet{Kind: kind, OwnerID: ownerID}, nil
	}
	return &w, nil
}

func (r *LedgerRepo) ListTransactions(ctx context.Context, kind models.WalletKind, ownerID string, limit int64) ([]models.Transaction, error) {
	defer r.s.lock(ctx)()
	out := []models.Transaction{}
	txns := r.s.st.txns
	for i := len(txns) - 1; i >= 0; i-- {
		if txns[i].WalletKind == kind && txns[i].OwnerID == ownerID {
			out = append(out, txns[i])
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *LedgerRepo) GetTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error) {
	defer r.s.lock(ctx)()
	for _, t := range r.s.st.txns {
		if t.WalletKind == kind && t.ID == txID {
			return &t, nil
		}
	}
	return nil, domain.NotFound("transaction", txID)
}

func (r *LedgerRepo) FindByReference(ctx context.Context, kind models.WalletKind, ownerID, reference string) (*models.Transaction, error) {
	defer r.s.lock(ctx)()
	for _, t := range r.s.st.txns {
		if t.WalletKind == kind && t.OwnerID == ownerID && t.Reference == reference {
			return &t, nil
		}
	}
	return nil, domain.NotFound("transaction reference", reference)
}

func (r *LedgerRepo) SumTransactions(ctx context.Context, kind models.WalletKind, ownerID string) (int64, int64, error) {
	defer r.s.lock(ctx)()
	var sum, count int64
	for _, t := range r.s.st.txns {
		if t.WalletKind == kind && t.OwnerID == ownerID {
			sum += t.Amount
			count++
		}
	}
	return sum, count, nil
}

func (r *LedgerRepo) SetBalance(ctx context.Context, kind models.WalletKind, ownerID string, balance int64) error {
	defer r.s.lock(ctx)()
	now := time.Now().UTC()
	key := walletKey{kind, ownerID}
	w, ok := r.s.st.wallets[key]
	if !ok {
		w = models.Wallet{Kind: kind, OwnerID: ownerID, CreatedAt: now}
	}
	w.Balance = balance
	w.UpdatedAt = now
	r.s.st.wallets[key] = w
	return nil
}

func (r *LedgerRepo) DeleteTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error) {
	defer r.s.lock(ctx)()
	st := &r.s.st
	for i, t := range st.txns {
		if t.WalletKind != kind || t.ID != txID {
			continue
		}
		key := walletKey{kind, t.OwnerID}
		w := st.wallets[key]
		if t.Amount > 0 && w.Balance < t.Amount {
			return nil, domain.New(domain.CodeInsufficientFunds,
				"removing transaction %s would leave wallet %s negative", txID, t.OwnerID)
		}
		applyDelta(&w, models.DeltaFor(kind, t.Type, t.Amount).Inverse())
		w.UpdatedAt = time.Now().UTC()
		st.wallets[key] = w
		st.txns = append(st.txns[:i:i], st.txns[i+1:]...)
		return &t, nil
	}
	return nil, domain.NotFound("transaction", txID)
}
