package profileRepo

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

type MongoProfileRepo struct {
	installers *mongo.Collection
	customers  *mongo.Collection
}

func NewMongoProfileRepo(db *mongo.Database) *MongoProfileRepo {
	return &MongoProfileRepo{
		installers: db.Collection("installers"),
		customers:  db.Collection("customers"),
	}
}

func (r *MongoProfileRepo) GetInstaller(ctx context.Context, id string) (*models.Installer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var inst models.Installer
	err := r.installers.FindOne(ctx, bson.M{"id": id}).Decode(&inst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Installer{ID: id}, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch installer")
	}
	return &inst, nil
}

func (r *MongoProfileRepo) upsertInstaller(ctx context.Context, id string, update bson.M, op string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.installers.UpdateOne(ctx, bson.M{"id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return domain.Unavailable(err, op)
	}
	return nil
}

func (r *MongoProfileRepo) SetVIP(ctx context.Context, id string, vip bool, now time.Time) error {
	return r.upsertInstaller(ctx, id, bson.M{"$set": bson.M{"vip": vip, "updatedAt": now}}, "set installer vip")
}

func (r *MongoProfileRepo) SetSuspension(ctx context.Context, id string, until *time.Time, now time.Time) error {
	update := bson.M{"$set": bson.M{"updatedAt": now}}
	if until == nil {
		update["$unset"] = bson.M{"suspendedUntil": ""}
	} else {
		update["$set"].(bson.M)["suspendedUntil"] = *until
	}
	return r.upsertInstaller(ctx, id, update, "set installer suspension")
}

func (r *MongoProfileRepo) LiftExpiredSuspensions(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.installers.UpdateMany(ctx,
		bson.M{"suspendedUntil": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"suspendedUntil": ""}, "$set": bson.M{"updatedAt": now}},
	)
	if err != nil {
		return 0, domain.Unavailable(err, "lift expired suspensions")
	}
	return res.ModifiedCount, nil
}

func (r *MongoProfileRepo) SetInstallerToken(ctx context.Context, id, token string) error {
	return r.upsertInstaller(ctx, id, bson.M{"$set": bson.M{"fcmToken": token, "updatedAt": time.Now().UTC()}}, "set installer token")
}

func (r *MongoProfileRepo) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Customer
	err := r.customers.FindOne(ctx, bson.M{"id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Customer{ID: id}, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch customer")
	}
	return &c, nil
}

func (r *MongoProfileRepo) SetCustomerToken(ctx context.Context, id, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.customers.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"fcmToken": token}}, options.Update().SetUpsert(true))
	if err != nil {
		return domain.Unavailable(err, "set customer token")
	}
	return nil
}

func (r *MongoProfileRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	idx := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := r.installers.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("failed to create installer indexes: %w", err)
	}
	if _, err := r.installers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "suspendedUntil", Value: 1}},
		Options: options.Index().SetSparse(true),
	}); err != nil {
		return fmt.Errorf("failed to create installer indexes: %w", err)
	}
	if _, err := r.customers.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("failed to create customer indexes: %w", err)
	}
	return nil
}
