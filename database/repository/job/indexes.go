package jobRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoJobRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		// One active assignment per booking; cancelled rows stay as history.
		{
			Keys: bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_booking").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "assignedAt", Value: -1}}},
		{Keys: bson.D{{Key: "installerId", Value: 1}, {Key: "assignedAt", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create job assignment indexes: %w", err)
	}
	return nil
}
