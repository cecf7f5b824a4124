package voucherRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"installhub/domain"
	"installhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoVoucherRepo struct {
	coll *mongo.Collection
}

func NewMongoVoucherRepo(db *mongo.Database) *MongoVoucherRepo {
	return &MongoVoucherRepo{coll: db.Collection("first_lead_vouchers")}
}

func (r *MongoVoucherRepo) Issue(ctx context.Context, v *models.FirstLeadVoucher) (*models.FirstLeadVoucher, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	onInsert := bson.M{
		"id":       v.ID,
		"isUsed":   false,
		"expired":  false,
		"issuedAt": v.IssuedAt,
	}
	if v.ExpiresAt != nil {
		onInsert["expiresAt"] = *v.ExpiresAt
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"installerId": v.InstallerID},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, domain.Unavailable(err, "issue voucher")
	}
	stored, err := r.GetByInstaller(ctx, v.InstallerID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.UpsertedCount > 0, nil
}

func (r *MongoVoucherRepo) GetByInstaller(ctx context.Context, installerID string) (*models.FirstLeadVoucher, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var v models.FirstLeadVoucher
	err := r.coll.FindOne(ctx, bson.M{"installerId": installerID}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("voucher for installer", installerID)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch voucher")
	}
	return &v, nil
}

func (r *MongoVoucherRepo) Consume(ctx context.Context, installerID, bookingID string, now time.Time) (*models.FirstLeadVoucher, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"installerId": installerID,
		"isUsed":      false,
		"expired":     false,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$exists": false}},
			bson.M{"expiresAt": bson.M{"$gt": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"isUsed":           true,
		"usedForBookingId": bookingID,
		"usedAt":           now,
	}}
	var v models.FirstLeadVoucher
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "consume voucher")
	}
	return &v, nil
}

func (r *MongoVoucherRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.coll.UpdateMany(ctx,
		bson.M{"isUsed": false, "expired": false, "expiresAt": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"expired": true}},
	)
	if err != nil {
		return 0, domain.Unavailable(err, "expire vouchers")
	}
	return res.ModifiedCount, nil
}

func (r *MongoVoucherRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "installerId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create voucher indexes: %w", err)
	}
	return nil
}
