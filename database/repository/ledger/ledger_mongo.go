package ledgerRepo

import (
	"context"
	"errors"
	"time"

	"installhub/domain"
	"installhub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLedgerRepo implements LedgerRepository using MongoDB.
type MongoLedgerRepo struct {
	installerWallets *mongo.Collection
	installerTxns    *mongo.Collection
	customerWallets  *mongo.Collection
	customerTxns     *mongo.Collection
}

// NewMongoLedgerRepo constructs a ledger repository over db.
func NewMongoLedgerRepo(db *mongo.Database) *MongoLedgerRepo {
	return &MongoLedgerRepo{
		installerWallets: db.Collection("installer_wallets"),
		installerTxns:    db.Collection("installer_transactions"),
		customerWallets:  db.Collection("customer_wallets"),
		customerTxns:     db.Collection("customer_transactions"),
	}
}

func (r *MongoLedgerRepo) collections(kind models.WalletKind) (wallets, txns *mongo.Collection) {
	if kind == models.CustomerWallet {
		return r.customerWallets, r.customerTxns
	}
	return r.installerWallets, r.installerTxns
}

func incDoc(d models.WalletDelta) bson.M {
	return bson.M{
		"balance":     d.Balance,
		"totalSpent":  d.TotalSpent,
		"totalEarned": d.TotalEarned,
		"totalTopUps": d.TotalTopUps,
	}
}

func (r *MongoLedgerRepo) Post(ctx context.Context, entry models.PostEntry) (*models.Transaction, *models.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	wallets, txns := r.collections(entry.Kind)
	now := time.Now().UTC()
	delta := models.DeltaFor(entry.Kind, entry.Type, entry.Amount)

	filter := bson.M{"ownerId": entry.OwnerID}
	update := bson.M{
		"$inc":         incDoc(delta),
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"kind": entry.Kind, "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if entry.Amount < 0 {
		// The balance guard lives in the filter so the check and the
		// decrement are one server-side operation.
		filter["balance"] = bson.M{"$gte": -entry.Amount}
	} else {
		opts.SetUpsert(true)
	}

	var wallet models.Wallet
	if err := wallets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&wallet); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, domain.New(domain.CodeInsufficientFunds,
				"%s wallet %s cannot cover %d", entry.Kind, entry.OwnerID, -entry.Amount)
		}
		return nil, nil, domain.Unavailable(err, "update wallet balance")
	}

	txn := &models.Transaction{
		ID:           uuid.New().String(),
		WalletKind:   entry.Kind,
		OwnerID:      entry.OwnerID,
		Amount:       entry.Amount,
		Type:         entry.Type,
		BookingID:    entry.BookingID,
		Description:  entry.Description,
		Reference:    entry.Reference,
		BalanceAfter: wallet.Balance,
		CreatedAt:    now,
	}
	if _, err := txns.InsertOne(ctx, txn); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, nil, domain.Wrap(domain.CodeConflict, err, "reference %s already posted", entry.Reference)
		}
		return nil, nil, domain.Unavailable(err, "insert transaction")
	}
	return txn, &wallet, nil
}

func (r *MongoLedgerRepo) GetWallet(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	wallets, _ := r.collections(kind)
	var wallet models.Wallet
	err := wallets.FindOne(ctx, bson.M{"ownerId": ownerID}).Decode(&wallet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Wallet{Kind: kind, OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch wallet")
	}
	return &wallet, nil
}

func (r *MongoLedgerRepo) ListTransactions(ctx context.Context, kind models.WalletKind, ownerID string, limit int64) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, txns := r.collections(kind)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := txns.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, domain.Unavailable(err, "list transactions")
	}
	defer cursor.Close(ctx)

	out := []models.Transaction{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Unavailable(err, "decode transactions")
	}
	return out, nil
}

func (r *MongoLedgerRepo) GetTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, txns := r.collections(kind)
	var txn models.Transaction
	err := txns.FindOne(ctx, bson.M{"id": txID}).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("transaction", txID)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch transaction")
	}
	return &txn, nil
}

func (r *MongoLedgerRepo) FindByReference(ctx context.Context, kind models.WalletKind, ownerID, reference string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, txns := r.collections(kind)
	var txn models.Transaction
	err := txns.FindOne(ctx, bson.M{"ownerId": ownerID, "reference": reference}).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("transaction reference", reference)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch transaction by reference")
	}
	return &txn, nil
}

func (r *MongoLedgerRepo) SumTransactions(ctx context.Context, kind models.WalletKind, ownerID string) (int64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, txns := r.collections(kind)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ownerId": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := txns.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, domain.Unavailable(err, "aggregate transactions")
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, 0, domain.Unavailable(err, "decode transaction sum")
	}
	if len(results) == 0 {
		return 0, 0, nil
	}
	return results[0].Total, results[0].Count, nil
}

func (r *MongoLedgerRepo) SetBalance(ctx context.Context, kind models.WalletKind, ownerID string, balance int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	wallets, _ := r.collections(kind)
	now := time.Now().UTC()
	_, err := wallets.UpdateOne(ctx,
		bson.M{"ownerId": ownerID},
		bson.M{
			"$set":         bson.M{"balance": balance, "updatedAt": now},
			"$setOnInsert": bson.M{"kind": kind, "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return domain.Unavailable(err, "set wallet balance")
	}
	return nil
}

func (r *MongoLedgerRepo) DeleteTransaction(ctx context.Context, kind models.WalletKind, txID string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	wallets, txns := r.collections(kind)
	var txn models.Transaction
	if err := txns.FindOneAndDelete(ctx, bson.M{"id": txID}).Decode(&txn); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("transaction", txID)
		}
		return nil, domain.Unavailable(err, "delete transaction")
	}

	inverse := models.DeltaFor(kind, txn.Type, txn.Amount).Inverse()
	filter := bson.M{"ownerId": txn.OwnerID}
	if txn.Amount > 0 {
		filter["balance"] = bson.M{"$gte": txn.Amount}
	}
	res, err := wallets.UpdateOne(ctx, filter, bson.M{
		"$inc": incDoc(inverse),
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return nil, domain.Unavailable(err, "reverse wallet balance")
	}
	if res.MatchedCount == 0 {
		return nil, domain.New(domain.CodeInsufficientFunds,
			"removing transaction %s would leave wallet %s negative", txID, txn.OwnerID)
	}
	return &txn, nil
}
