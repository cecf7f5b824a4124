package settingsRepo

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

type MongoSettingsRepo struct {
	platform *mongo.Collection
	refunds  *mongo.Collection
}

func NewMongoSettingsRepo(db *mongo.Database) *MongoSettingsRepo {
	return &MongoSettingsRepo{
		platform: db.Collection("platform_settings"),
		refunds:  db.Collection("performance_refund_settings"),
	}
}

func (r *MongoSettingsRepo) GetSetting(ctx context.Context, key string) (*models.PlatformSetting, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.PlatformSetting
	err := r.platform.FindOne(ctx, bson.M{"key": key}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.PlatformSetting{Key: key}, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch platform setting")
	}
	return &s, nil
}

func (r *MongoSettingsRepo) PutSetting(ctx context.Context, s models.PlatformSetting) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.platform.ReplaceOne(ctx, bson.M{"key": s.Key}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.Unavailable(err, "store platform setting")
	}
	return nil
}

func (r *MongoSettingsRepo) ListRefundSettings(ctx context.Context) ([]models.PerformanceRefundSetting, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.refunds.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "starLevel", Value: 1}}))
	if err != nil {
		return nil, domain.Unavailable(err, "list refund settings")
	}
	defer cursor.Close(ctx)

	out := []models.PerformanceRefundSetting{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Unavailable(err, "decode refund settings")
	}
	return out, nil
}

func (r *MongoSettingsRepo) GetRefundSetting(ctx context.Context, starLevel int) (*models.PerformanceRefundSetting, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.PerformanceRefundSetting
	err := r.refunds.FindOne(ctx, bson.M{"starLevel": starLevel}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("refund setting for star level", fmt.Sprint(starLevel))
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch refund setting")
	}
	return &s, nil
}

func (r *MongoSettingsRepo) UpsertRefundSetting(ctx context.Context, s models.PerformanceRefundSetting) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.refunds.ReplaceOne(ctx, bson.M{"starLevel": s.StarLevel}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.Unavailable(err, "store refund setting")
	}
	return nil
}

func (r *MongoSettingsRepo) InsertRefundSettingIfAbsent(ctx context.Context, s models.PerformanceRefundSetting) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.refunds.UpdateOne(ctx,
		bson.M{"starLevel": s.StarLevel},
		bson.M{"$setOnInsert": bson.M{
			"refundPercentage": s.RefundPercentage,
			"active":           s.Active,
			"updatedAt":        s.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, domain.Unavailable(err, "seed refund setting")
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoSettingsRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.platform.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create platform setting indexes: %w", err)
	}
	if _, err := r.refunds.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "starLevel", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create refund setting indexes: %w", err)
	}
	return nil
}
