package ledger

import (
	"context"

	"installhub/models"
)

// ReconcileReport compares a wallet's cached balance with its transaction log.
type ReconcileReport struct {
	Kind          models.WalletKind `json:"kind"`
	OwnerID       string            `json:"ownerId"`
	CachedBalance int64             `json:"cachedBalance"`
	LedgerBalance int64             `json:"ledgerBalance"`
	Drift         int64             `json:"drift"`
	Entries       int64             `json:"entries"`
	Repaired      bool              `json:"repaired"`
}

// LedgerService is the only path through which wallet balances change.
type LedgerService interface {
	Post(ctx context.Context, entry models.PostEntry) (*models.Transaction, *models.Wallet, error)
	GetInstallerWallet(ctx context.Context, installerID string) (*models.Wallet, error)
	GetCustomerWallet(ctx context.Context, customerID string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, kind models.WalletKind, ownerID string, limit int64) ([]models.Transaction, error)
	Reconcile(ctx context.Context, kind models.WalletKind, ownerID string, repair bool) (*ReconcileReport, error)
	DeleteTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error)
	TopUpCustomer(ctx context.Context, customerID, paymentIntentID string) (*models.Transaction, error)
	ChargeAIUsage(ctx context.Context, customerID string, amount int64, description string) (*models.Transaction, error)
}
