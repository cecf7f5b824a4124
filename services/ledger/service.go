package ledger

import (
	"context"
	"errors"
	"fmt"

	"installhub/database"
	ledgerRepo "installhub/database/repository/ledger"
	"installhub/domain"
	"installhub/models"
	"installhub/services/payment"

	"go.uber.org/zap"
)

type DefaultLedgerService struct {
	Repo     ledgerRepo.LedgerRepository
	Tx       database.TxRunner
	Payments payment.PaymentVerifier
	Logger   *zap.Logger
}

func NewDefaultLedgerService(repo ledgerRepo.LedgerRepository, tx database.TxRunner, payments payment.PaymentVerifier, logger *zap.Logger) *DefaultLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultLedgerService{Repo: repo, Tx: tx, Payments: payments, Logger: logger}
}

// signOf returns -1 for types that must debit, +1 for types that must credit
// and 0 for adjustments, which may go either way.
func signOf(t models.TransactionType) int {
	switch t {
	case models.TxLeadPurchase, models.TxAIUsage:
		return -1
	case models.TxLeadReversal, models.TxRefund, models.TxTopUp:
		return 1
	}
	return 0
}

func validateEntry(e models.PostEntry) error {
	if _, err := models.ParseWalletKind(string(e.Kind)); err != nil {
		return domain.Validation("%v", err)
	}
	if _, err := models.ParseTransactionType(string(e.Type)); err != nil {
		return domain.Validation("%v", err)
	}
	if e.OwnerID == "" {
		return domain.Validation("wallet owner is required")
	}
	if e.Amount == 0 {
		return domain.Validation("transaction amount must be non-zero")
	}
	switch signOf(e.Type) {
	case -1:
		if e.Amount > 0 {
			return domain.Validation("%s must be a debit, got %d", e.Type, e.Amount)
		}
	case 1:
		if e.Amount < 0 {
			return domain.Validation("%s must be a credit, got %d", e.Type, e.Amount)
		}
	}
	return nil
}

func (s *DefaultLedgerService) Post(ctx context.Context, entry models.PostEntry) (*models.Transaction, *models.Wallet, error) {
	if err := validateEntry(entry); err != nil {
		return nil, nil, err
	}

	var (
		txn    *models.Transaction
		wallet *models.Wallet
	)
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		txn, wallet, err = s.Repo.Post(ctx, entry)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.Logger.Info("ledger entry posted",
		zap.String("kind", string(entry.Kind)),
		zap.String("ownerId", entry.OwnerID),
		zap.String("type", string(entry.Type)),
		zap.Int64("amount", entry.Amount),
		zap.Int64("balanceAfter", txn.BalanceAfter),
		zap.String("bookingId", entry.BookingID),
	)
	return txn, wallet, nil
}

func (s *DefaultLedgerService) GetInstallerWallet(ctx context.Context, installerID string) (*models.Wallet, error) {
	return s.Repo.GetWallet(ctx, models.InstallerWallet, installerID)
}

func (s *DefaultLedgerService) GetCustomerWallet(ctx context.Context, customerID string) (*models.Wallet, error) {
	return s.Repo.GetWallet(ctx, models.CustomerWallet, customerID)
}

func (s *DefaultLedgerService) ListTransactions(ctx context.Context, kind models.WalletKind, ownerID string, limit int64) ([]models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Repo.ListTransactions(ctx, kind, ownerID, limit)
}

func (s *DefaultLedgerService) Reconcile(ctx context.Context, kind models.WalletKind, ownerID string, repair bool) (*ReconcileReport, error) {
	report := &ReconcileReport{Kind: kind, OwnerID: ownerID}
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.Repo.GetWallet(ctx, kind, ownerID)
		if err != nil {
			return err
		}
		sum, count, err := s.Repo.SumTransactions(ctx, kind, ownerID)
		if err != nil {
			return err
		}
		report.CachedBalance = wallet.Balance
		report.LedgerBalance = sum
		report.Entries = count
		report.Drift = wallet.Balance - sum

		if repair && report.Drift != 0 {
			if err := s.Repo.SetBalance(ctx, kind, ownerID, sum); err != nil {
				return err
			}
			report.Repaired = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.Drift != 0 {
		s.Logger.Warn("wallet drift detected",
			zap.String("kind", string(kind)),
			zap.String("ownerId", ownerID),
			zap.Int64("drift", report.Drift),
			zap.Bool("repaired", report.Repaired),
		)
	}
	return report, nil
}

func (s *DefaultLedgerService) DeleteTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error) {
	var removed *models.Transaction
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.Repo.DeleteTransaction(ctx, kind, txID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Warn("ledger entry removed",
		zap.String("kind", string(kind)),
		zap.String("txId", txID),
		zap.String("ownerId", removed.OwnerID),
		zap.Int64("amount", removed.Amount),
	)
	return removed, nil
}

// TopUpCustomer credits a settled payment once. Repeating the call with the
// same intent returns the original transaction.
func (s *DefaultLedgerService) TopUpCustomer(ctx context.Context, customerID, paymentIntentID string) (*models.Transaction, error) {
	if s.Payments == nil {
		return nil, domain.Unavailable(errors.New("no payment verifier configured"), "top up customer")
	}
	if existing, err := s.Repo.FindByReference(ctx, models.CustomerWallet, customerID, paymentIntentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	paid, err := s.Payments.VerifyTopUp(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if paid.CustomerID != "" && paid.CustomerID != customerID {
		return nil, domain.New(domain.CodeForbidden, "payment intent %s belongs to another customer", paymentIntentID)
	}

	txn, _, err := s.Post(ctx, models.PostEntry{
		Kind:        models.CustomerWallet,
		OwnerID:     customerID,
		Amount:      paid.Amount,
		Type:        models.TxTopUp,
		Description: fmt.Sprintf("Wallet top-up via payment %s", paymentIntentID),
		Reference:   paymentIntentID,
	})
	if errors.Is(err, domain.ErrConflict) {
		return s.Repo.FindByReference(ctx, models.CustomerWallet, customerID, paymentIntentID)
	}
	return txn, err
}

func (s *DefaultLedgerService) ChargeAIUsage(ctx context.Context, customerID string, amount int64, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, domain.Validation("usage charge must be positive, got %d", amount)
	}
	if description == "" {
		description = "AI assistant usage"
	}
	txn, _, err := s.Post(ctx, models.PostEntry{
		Kind:        models.CustomerWallet,
		OwnerID:     customerID,
		Amount:      -amount,
		Type:        models.TxAIUsage,
		Description: description,
	})
	return txn, err
}
