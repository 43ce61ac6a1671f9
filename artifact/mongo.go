package artifact

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type inserter interface {
	InsertOne(ctx context.Context, document interface{},
		opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoStore inserts each record into the collection named after its suite.
type MongoStore struct {
	client     *mongo.Client
	collection func(name string) inserter
}

// Connect opens a client for uri and checks the primary answers.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", database)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrapf(err, "mongodb ping failed for %s", database)
	}

	db := client.Database(database)

	return &MongoStore{
		client:     client,
		collection: func(name string) inserter { return db.Collection(name) },
	}, nil
}

// Insert stores rec and returns the inserted document id.
func (s *MongoStore) Insert(ctx context.Context, rec Record) (string, error) {
	if rec.Suite == "" {
		return "", errors.New("record has no suite")
	}

	res, err := s.collection(rec.Suite).InsertOne(ctx, rec)
	if err != nil {
		log.WithFields(log.Fields{"suite": rec.Suite, "run_id": rec.RunID}).Errorf("insert failed: %s", err)
		return "", errors.Wrapf(err, "failed to insert run %s", rec.RunID)
	}

	log.WithFields(log.Fields{"suite": rec.Suite, "run_id": rec.RunID}).Info("artifact stored")

	return fmt.Sprint(res.InsertedID), nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	return s.client.Disconnect(ctx)
}
