package ledgerRepo

import (
	"context"

	"installhub/models"
)

// LedgerRepository persists wallets and their append-only transaction logs.
//
// Post performs two writes (the wallet increment and the transaction insert);
// callers run it inside database.TxRunner so both commit or neither does.
type LedgerRepository interface {
	// Post applies entry to its wallet and appends the transaction. Debits that
	// would take the balance below zero fail with domain.ErrInsufficientFunds;
	// credits create the wallet on first reference.
	Post(ctx context.Context, entry models.PostEntry) (*models.Transaction, *models.Wallet, error)
	// GetWallet returns the wallet, or a zero-balance view when none exists yet.
	GetWallet(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, kind models.WalletKind, ownerID string, limit int64) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error)
	FindByReference(ctx context.Context, kind models.WalletKind, ownerID, reference string) (*models.Transaction, error)
	// SumTransactions returns the signed sum and count of the wallet's log.
	SumTransactions(ctx context.Context, kind models.WalletKind, ownerID string) (int64, int64, error)
	SetBalance(ctx context.Context, kind models.WalletKind, ownerID string, balance int64) error
	// DeleteTransaction removes a row and reverses its effect on the wallet.
	DeleteTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error)
}
