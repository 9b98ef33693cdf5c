// Package db persists the booking engine. Mongo is the production store;
// Memory implements the same Store for tests and STORE=memory.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripgenie/errs"
	"tripgenie/logger"
)

// Options configure the Mongo connection.
type Options struct {
	URI          string
	Database     string
	Transactions bool // requires a replica set
}

type Mongo struct {
	Client *mongo.Client

	ItineraryCollection   *mongo.Collection
	BookingsCollection    *mongo.Collection
	ActivitiesCollection  *mongo.Collection
	ProductsCollection    *mongo.Collection
	AccountsCollection    *mongo.Collection
	CurrencyCollection    *mongo.Collection
	IdempotencyCollection *mongo.Collection

	transactions bool
	now          func() time.Time
}

var _ Store = (*Mongo)(nil)

// Connect dials Mongo, pings it and makes sure the indexes exist.
func Connect(ctx context.Context, opts Options) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	database := client.Database(opts.Database)
	m := &Mongo{
		Client:                client,
		ItineraryCollection:   database.Collection("itineraries"),
		BookingsCollection:    database.Collection("itineraryBookings"),
		ActivitiesCollection:  database.Collection("activities"),
		ProductsCollection:    database.Collection("products"),
		AccountsCollection:    database.Collection("accounts"),
		CurrencyCollection:    database.Collection("currencies"),
		IdempotencyCollection: database.Collection("idempotency"),
		transactions:          opts.Transactions,
		now:                   time.Now,
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	level.Info(logger.Log).Log("msg", "connected to mongo", "db", opts.Database, "transactions", opts.Transactions)
	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the lookup indexes and the idempotency key index
// (unique key plus TTL on expiresAt).
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		m.ItineraryCollection:  {{Keys: bson.D{{Key: "tourGuide", Value: 1}}}},
		m.BookingsCollection:   {{Keys: bson.D{{Key: "tourist", Value: 1}}}, {Keys: bson.D{{Key: "itinerary", Value: 1}}}},
		m.ActivitiesCollection: {{Keys: bson.D{{Key: "advertiser", Value: 1}}}},
		m.ProductsCollection:   {{Keys: bson.D{{Key: "seller", Value: 1}}}},
		m.IdempotencyCollection: {
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_key"),
			},
			{
				Keys:    bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
			},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Atomically runs fn in a multi-document transaction when transactions are
// enabled. Without them a failure part-way replays the undo steps fn
// registered with OnRollback.
func (m *Mongo) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return Compensating(ctx, fn)
	}
	session, err := m.Client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// findOne decodes the document matching filter into dst, translating a miss
// into a NotFound naming what was looked up.
func findOne(ctx context.Context, coll *mongo.Collection, filter any, dst any, what string, id string) error {
	err := coll.FindOne(ctx, filter).Decode(dst)
	return notFound(err, what, id)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.NotFound("%s %s not found", what, id)
	}
	if err != nil {
		return fmt.Errorf("loading %s %s: %w", what, id, err)
	}
	return nil
}

// findAll runs filter and decodes every result into a non-nil slice.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

func isDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
