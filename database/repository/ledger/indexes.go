package ledgerRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the wallet and transaction indexes.
func (r *MongoLedgerRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	walletIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	txnIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "bookingId", Value: 1}}},
		// Externally referenced credits (top-ups) post at most once.
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"reference": bson.M{"$exists": true},
			}),
		},
	}

	for _, coll := range []*mongo.Collection{r.installerWallets, r.customerWallets} {
		if _, err := coll.Indexes().CreateMany(ctx, walletIdx); err != nil {
			return fmt.Errorf("failed to create wallet indexes on %s: %w", coll.Name(), err)
		}
	}
	for _, coll := range []*mongo.Collection{r.installerTxns, r.customerTxns} {
		if _, err := coll.Indexes().CreateMany(ctx, txnIdx); err != nil {
			return fmt.Errorf("failed to create transaction indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
