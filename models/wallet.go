package models

import (
	"fmt"
	"time"
)

// WalletKind selects which ledger a wallet lives in.
type WalletKind string

const (
	InstallerWallet WalletKind = "installer"
	CustomerWallet  WalletKind = "customer"
)

func ParseWalletKind(s string) (WalletKind, error) {
	switch k := WalletKind(s); k {
	case InstallerWallet, CustomerWallet:
		return k, nil
	case "installers":
		return InstallerWallet, nil
	case "customers":
		return CustomerWallet, nil
	}
	return "", fmt.Errorf("unknown wallet kind %q", s)
}

// Wallet is the cached projection of a ledger. Balance always equals the sum of
// the wallet's transactions; it is only ever changed together with an insert.
type Wallet struct {
	Kind        WalletKind `bson:"kind" json:"kind"`
	OwnerID     string     `bson:"ownerId" json:"ownerId"`
	Balance     int64      `bson:"balance" json:"balance"`
	TotalSpent  int64      `bson:"totalSpent" json:"totalSpent"`
	TotalEarned int64      `bson:"totalEarned" json:"totalEarned,omitempty"` // installer only
	TotalTopUps int64      `bson:"totalTopUps" json:"totalTopUps,omitempty"` // customer only
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// WalletDelta is the set of counter increments one posting applies.
type WalletDelta struct {
	Balance     int64
	TotalSpent  int64
	TotalEarned int64
	TotalTopUps int64
}

// DeltaFor derives counter increments from a signed amount. Installer lead
// reversals give back spend instead of counting as earnings.
func DeltaFor(kind WalletKind, txType TransactionType, amount int64) WalletDelta {
	d := WalletDelta{Balance: amount}
	switch {
	case amount < 0:
		d.TotalSpent = -amount
	case kind == InstallerWallet && txType == TxLeadReversal:
		d.TotalSpent = -amount
	case kind == InstallerWallet:
		d.TotalEarned = amount
	default:
		d.TotalTopUps = amount
	}
	return d
}

// Inverse undoes a delta; used by administrative transaction deletion.
func (d WalletDelta) Inverse() WalletDelta {
	return WalletDelta{
		Balance:     -d.Balance,
		TotalSpent:  -d.TotalSpent,
		TotalEarned: -d.TotalEarned,
		TotalTopUps: -d.TotalTopUps,
	}
}
