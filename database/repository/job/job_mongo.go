package jobRepo

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

type MongoJobRepo struct {
	coll *mongo.Collection
}

func NewMongoJobRepo(db *mongo.Database) *MongoJobRepo {
	return &MongoJobRepo{coll: db.Collection("job_assignments")}
}

func (r *MongoJobRepo) Create(ctx context.Context, job *models.JobAssignment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Wrap(domain.CodeAlreadyHeld, err, "booking %s already has an active assignment", job.BookingID)
		}
		return domain.Unavailable(err, "create job assignment")
	}
	return nil
}

func (r *MongoJobRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions, what string) (*models.JobAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var job models.JobAssignment
	err := r.coll.FindOne(ctx, filter, opts).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("job assignment", what)
	}
	if err != nil {
		return nil, domain.Unavailable(err, "fetch job assignment")
	}
	return &job, nil
}

func (r *MongoJobRepo) GetByID(ctx context.Context, id string) (*models.JobAssignment, error) {
	return r.findOne(ctx, bson.M{"id": id}, nil, id)
}

func (r *MongoJobRepo) GetActiveByBooking(ctx context.Context, bookingID string) (*models.JobAssignment, error) {
	return r.findOne(ctx, bson.M{"bookingId": bookingID, "active": true}, nil, "for booking "+bookingID)
}

func (r *MongoJobRepo) GetLatestByBooking(ctx context.Context, bookingID string) (*models.JobAssignment, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "assignedAt", Value: -1}, {Key: "_id", Value: -1}})
	return r.findOne(ctx, bson.M{"bookingId": bookingID}, opts, "for booking "+bookingID)
}

func (r *MongoJobRepo) list(ctx context.Context, filter bson.M, limit int64) ([]models.JobAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Unavailable(err, "list job assignments")
	}
	defer cursor.Close(ctx)

	out := []models.JobAssignment{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Unavailable(err, "decode job assignments")
	}
	return out, nil
}

func (r *MongoJobRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.JobAssignment, error) {
	return r.list(ctx, bson.M{"bookingId": bookingID}, 0)
}

func (r *MongoJobRepo) ListByInstaller(ctx context.Context, installerID string, limit int64) ([]models.JobAssignment, error) {
	return r.list(ctx, bson.M{"installerId": installerID}, limit)
}

func (r *MongoJobRepo) CountReleasedBy(ctx context.Context, bookingID, installerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{
		"bookingId":   bookingID,
		"installerId": installerID,
		"status":      models.JobCancelled,
	})
	if err != nil {
		return 0, domain.Unavailable(err, "count released assignments")
	}
	return n, nil
}

func (r *MongoJobRepo) casUpdate(ctx context.Context, filter, update bson.M, op string) (*models.JobAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var job models.JobAssignment
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable(err, op)
	}
	return &job, nil
}

func (r *MongoJobRepo) Advance(ctx context.Context, jobID string, from, to models.JobStatus, now time.Time) (*models.JobAssignment, error) {
	set := bson.M{"status": to}
	switch to {
	case models.JobAccepted:
		set["acceptedAt"] = now
	case models.JobInProgress:
		set["startedAt"] = now
	case models.JobCompleted:
		set["completedAt"] = now
	}
	return r.casUpdate(ctx,
		bson.M{"id": jobID, "active": true, "status": from},
		bson.M{"$set": set},
		"advance job assignment",
	)
}

func (r *MongoJobRepo) Cancel(ctx context.Context, jobID string, upd CancelUpdate) (*models.JobAssignment, error) {
	return r.casUpdate(ctx,
		bson.M{
			"id":     jobID,
			"active": true,
			"status": bson.M{"$in": []models.JobStatus{models.JobAssigned, models.JobAccepted}},
		},
		bson.M{"$set": bson.M{
			"status":        models.JobCancelled,
			"active":        false,
			"leadFeeStatus": upd.LeadFeeStatus,
			"cancelReason":  upd.Reason,
			"cancelledBy":   upd.By,
			"cancelledAt":   upd.At,
		}},
		"cancel job assignment",
	)
}
