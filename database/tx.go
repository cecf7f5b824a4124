package database

import (
	"context"

	"installhub/domain"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner executes fn as one atomic unit. Repository calls made with the
// context passed to fn join the unit.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MongoTxRunner runs fn inside a MongoDB session transaction. The driver
// retries fn on transient transaction errors such as write conflicts, so fn
// must not have side effects outside the database.
type MongoTxRunner struct {
	client *mongo.Client
}

func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

func (r *MongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a session; join it rather than nesting.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return domain.Unavailable(err, "start mongo session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && domain.CodeOf(err) == "" {
		// Commit and abort failures surface from the driver unclassified.
		return domain.Unavailable(err, "commit transaction")
	}
	return err
}
