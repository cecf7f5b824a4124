package models

import (
	"fmt"
	"time"
)

type TransactionType string

const (
	TxLeadPurchase TransactionType = "lead_purchase"
	TxLeadReversal TransactionType = "lead_reversal"
	TxRefund       TransactionType = "refund"
	TxAIUsage      TransactionType = "ai_usage"
	TxTopUp        TransactionType = "top_up"
	TxAdjustment   TransactionType = "adjustment"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TxLeadPurchase, TxLeadReversal, TxRefund, TxAIUsage, TxTopUp, TxAdjustment:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Transaction is an immutable ledger row.
type Transaction struct {
	ID           string          `bson:"id" json:"id"`
	WalletKind   WalletKind      `bson:"walletKind" json:"walletKind"`
	OwnerID      string          `bson:"ownerId" json:"ownerId"`
	Amount       int64           `bson:"amount" json:"amount"`
	Type         TransactionType `bson:"type" json:"type"`
	BookingID    string          `bson:"bookingId,omitempty" json:"bookingId,omitempty"`
	Description  string          `bson:"description" json:"description"`
	Reference    string          `bson:"reference,omitempty" json:"reference,omitempty"`
	BalanceAfter int64           `bson:"balanceAfter" json:"balanceAfter"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
}

// PostEntry is the input to the ledger's single mutation entry point.
type PostEntry struct {
	Kind        WalletKind
	OwnerID     string
	Amount      int64
	Type        TransactionType
	Description string
	BookingID   string
	Reference   string
}
