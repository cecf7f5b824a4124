package flagRepo

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

type MongoFlagRepo struct {
	coll *mongo.Collection
}

func NewMongoFlagRepo(db *mongo.Database) *MongoFlagRepo {
	return &MongoFlagRepo{coll: db.Collection("anti_manipulation")}
}

func (r *MongoFlagRepo) Append(ctx context.Context, rec *models.AntiManipulationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return domain.Unavailable(err, "append anti-manipulation record")
	}
	return nil
}

func (r *MongoFlagRepo) GetByID(ctx context.Context, id string) (*models.AntiManipulationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.AntiManipulationRecord
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("anti-manipulation record", id)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch anti-manipulation record")
	}
	return &rec, nil
}

func (r *MongoFlagRepo) List(ctx context.Context, f ListFilter) ([]models.AntiManipulationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if f.InstallerID != "" {
		filter["installerId"] = f.InstallerID
	}
	if f.Pattern != "" {
		filter["pattern"] = f.Pattern
	}
	if f.UnresolvedOnly {
		filter["resolved"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Unavailable(err, "list anti-manipulation records")
	}
	defer cursor.Close(ctx)

	out := []models.AntiManipulationRecord{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Unavailable(err, "decode anti-manipulation records")
	}
	return out, nil
}

func (r *MongoFlagRepo) CountSince(ctx context.Context, installerID, pattern string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{
		"installerId": installerID,
		"pattern":     pattern,
		"createdAt":   bson.M{"$gte": since},
	})
	if err != nil {
		return 0, domain.Unavailable(err, "count anti-manipulation records")
	}
	return n, nil
}

func (r *MongoFlagRepo) HasOpen(ctx context.Context, installerID, bookingID, pattern string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"installerId": installerID, "pattern": pattern, "resolved": false}
	if bookingID != "" {
		filter["bookingId"] = bookingID
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, domain.Unavailable(err, "check open anti-manipulation records")
	}
	return n > 0, nil
}

func (r *MongoFlagRepo) Resolve(ctx context.Context, id, by, note string, now time.Time) (*models.AntiManipulationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.AntiManipulationRecord
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"id": id, "resolved": false},
		bson.M{"$set": bson.M{
			"resolved":       true,
			"resolvedBy":     by,
			"resolutionNote": note,
			"resolvedAt":     now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "resolve anti-manipulation record")
	}
	return &rec, nil
}

func (r *MongoFlagRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "installerId", Value: 1}, {Key: "pattern", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "resolved", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create anti-manipulation indexes: %w", err)
	}
	return nil
}
