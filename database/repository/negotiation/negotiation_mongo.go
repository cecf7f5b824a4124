package negotiationRepo

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

type MongoNegotiationRepo struct {
	coll *mongo.Collection
}

func NewMongoNegotiationRepo(db *mongo.Database) *MongoNegotiationRepo {
	return &MongoNegotiationRepo{coll: db.Collection("schedule_negotiations")}
}

var chronological = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

func (r *MongoNegotiationRepo) Create(ctx context.Context, n *models.ScheduleNegotiation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Wrap(domain.CodeConflict, err, "booking %s already has a pending proposal", n.BookingID)
		}
		return domain.Unavailable(err, "create negotiation")
	}
	return nil
}

func (r *MongoNegotiationRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions, what string) (*models.ScheduleNegotiation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n models.ScheduleNegotiation
	err := r.coll.FindOne(ctx, filter, opts).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("negotiation", what)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch negotiation")
	}
	return &n, nil
}

func (r *MongoNegotiationRepo) GetByID(ctx context.Context, id string) (*models.ScheduleNegotiation, error) {
	return r.findOne(ctx, bson.M{"id": id}, nil, id)
}

func (r *MongoNegotiationRepo) GetPending(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error) {
	return r.findOne(ctx, bson.M{"bookingId": bookingID, "status": models.NegotiationPending}, nil, "pending for booking "+bookingID)
}

func (r *MongoNegotiationRepo) Latest(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	return r.findOne(ctx, bson.M{"bookingId": bookingID}, opts, "for booking "+bookingID)
}

func (r *MongoNegotiationRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.ScheduleNegotiation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"bookingId": bookingID}, options.Find().SetSort(chronological))
	if err != nil {
		return nil, domain.Unavailable(err, "list negotiations")
	}
	defer cursor.Close(ctx)

	out := []models.ScheduleNegotiation{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Unavailable(err, "decode negotiations")
	}
	return out, nil
}

func (r *MongoNegotiationRepo) Count(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"bookingId": bookingID})
	if err != nil {
		return 0, domain.Unavailable(err, "count negotiations")
	}
	return n, nil
}

func (r *MongoNegotiationRepo) Resolve(ctx context.Context, id string, status models.NegotiationStatus, message string, now time.Time) (*models.ScheduleNegotiation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": status, "respondedAt": now}
	if message != "" {
		set["responseMessage"] = message
	}
	var n models.ScheduleNegotiation
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"id": id, "status": models.NegotiationPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, "resolve negotiation")
	}
	return &n, nil
}

func (r *MongoNegotiationRepo) SupersedeOthers(ctx context.Context, bookingID, keepID string, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"bookingId": bookingID,
			"id":        bson.M{"$ne": keepID},
			"status":    bson.M{"$ne": models.NegotiationSuperseded},
		},
		bson.M{"$set": bson.M{"status": models.NegotiationSuperseded}},
	)
	if err != nil {
		return 0, domain.Unavailable(err, "supersede negotiations")
	}
	return res.ModifiedCount, nil
}

func (r *MongoNegotiationRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return domain.Unavailable(err, "delete negotiation")
	}
	if res.DeletedCount == 0 {
		return domain.NotFound("negotiation", id)
	}
	return nil
}

func (r *MongoNegotiationRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{
			Keys: bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().
				SetName("uniq_pending_proposal").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.NegotiationPending}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create negotiation indexes: %w", err)
	}
	return nil
}
