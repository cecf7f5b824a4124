package bookingRepo

import (
	"context"
	"errors"
	"time"

	"installhub/domain"
	"installhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{coll: db.Collection("bookings")}
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Wrap(domain.CodeConflict, err, "booking %s already exists", booking.ID)
		}
		return domain.Unavailable(err, "create booking")
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("booking", id)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch booking")
	}
	return &b, nil
}

// casUpdate applies update when filter matches and returns the new document,
// or (nil, nil) when nothing matched.
func (r *MongoBookingRepo) casUpdate(ctx context.Context, filter, update bson.M, op string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if inc, ok := update["$inc"].(bson.M); ok {
		inc["version"] = 1
	} else {
		update["$inc"] = bson.M{"version": 1}
	}

	var b models.Booking
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, op)
	}
	return &b, nil
}

func (r *MongoBookingRepo) Claim(ctx context.Context, bookingID, installerID string, now time.Time) (*models.Booking, error) {
	return r.casUpdate(ctx,
		bson.M{"id": bookingID, "status": models.BookingPending, "installerId": ""},
		bson.M{"$set": bson.M{
			"status":      models.BookingAssigned,
			"installerId": installerID,
			"updatedAt":   now,
		}},
		"claim booking",
	)
}

func (r *MongoBookingRepo) Transition(ctx context.Context, bookingID, installerID string, from, to models.BookingStatus, now time.Time) (*models.Booking, error) {
	set := bson.M{"status": to, "updatedAt": now}
	if to == models.BookingCompleted {
		set["completedAt"] = now
	}
	return r.casUpdate(ctx,
		bson.M{"id": bookingID, "status": from, "installerId": installerID},
		bson.M{"$set": set},
		"transition booking",
	)
}

func (r *MongoBookingRepo) Release(ctx context.Context, bookingID, installerID string, now time.Time) (*models.Booking, error) {
	return r.casUpdate(ctx,
		bson.M{
			"id":          bookingID,
			"installerId": installerID,
			"status":      bson.M{"$in": []models.BookingStatus{models.BookingAssigned, models.BookingAccepted}},
		},
		bson.M{"$set": bson.M{
			"status":      models.BookingPending,
			"installerId": "",
			"updatedAt":   now,
		}},
		"release booking",
	)
}

func (r *MongoBookingRepo) MarkDeleted(ctx context.Context, bookingID string, now time.Time) (*models.Booking, error) {
	return r.casUpdate(ctx,
		bson.M{"id": bookingID, "status": models.BookingPending, "installerId": ""},
		bson.M{"$set": bson.M{
			"status":    models.BookingDeleted,
			"deletedAt": now,
			"updatedAt": now,
		}},
		"delete booking",
	)
}

func (r *MongoBookingRepo) SetRating(ctx context.Context, bookingID string, stars float64, eligible bool, now time.Time) (*models.Booking, error) {
	return r.casUpdate(ctx,
		bson.M{"id": bookingID, "status": models.BookingCompleted, "refundProcessed": false},
		bson.M{"$set": bson.M{
			"qualityStars":      stars,
			"eligibleForRefund": eligible,
			"ratedAt":           now,
			"updatedAt":         now,
		}},
		"rate booking",
	)
}

func (r *MongoBookingRepo) MarkRefundProcessed(ctx context.Context, bookingID string, amount int64, pct float64, now time.Time) (*models.Booking, error) {
	return r.casUpdate(ctx,
		bson.M{
			"id":                bookingID,
			"status":            models.BookingCompleted,
			"eligibleForRefund": true,
			"refundProcessed":   false,
		},
		bson.M{"$set": bson.M{
			"refundProcessed":   true,
			"refundAmount":      amount,
			"refundPercentage":  pct,
			"refundProcessedAt": now,
			"updatedAt":         now,
		}},
		"mark refund processed",
	)
}

func (r *MongoBookingRepo) SetSchedule(ctx context.Context, bookingID, date, timeOfDay string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": bookingID}, bson.M{
		"$set": bson.M{"scheduledDate": date, "scheduledTime": timeOfDay, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return domain.Unavailable(err, "set booking schedule")
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("booking", bookingID)
	}
	return nil
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M, limit int64, op string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Unavailable(err, op)
	}
	defer cursor.Close(ctx)

	out := []models.Booking{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Unavailable(err, op)
	}
	return out, nil
}

func (r *MongoBookingRepo) ListByStatus(ctx context.Context, status models.BookingStatus, limit int64) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"status": status}, limit, "list bookings")
}

func (r *MongoBookingRepo) ListUnprocessedRefunds(ctx context.Context, limit int64) ([]models.Booking, error) {
	return r.find(ctx, bson.M{
		"status":            models.BookingCompleted,
		"eligibleForRefund": true,
		"refundProcessed":   false,
	}, limit, "list unprocessed refunds")
}
