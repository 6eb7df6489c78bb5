// Package mongo implements store.Store on a MongoDB document database.
// It is the primary driver: unique indexes enforce the employee and
// attendance invariants, and aggregation pipelines back the store-side
// analytics engine.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/pkg/metrics"
)

// Collection names.
const (
	colEmployees  = "employees"
	colFaces      = "faces"
	colAttendance = "attendance"
	colEvents     = "recognition_events"
)

const defaultDatabase = "rollcall"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithURI sets the connection string.
func WithURI(uri string) Option {
	return func(s *Store) {
		if uri != "" {
			s.uri = uri
		}
	}
}

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.database = name
		}
	}
}

// WithConnectTimeout bounds the initial connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// Store is the MongoDB driver.
type Store struct {
	uri            string
	database       string
	connectTimeout time.Duration

	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	s := &Store{
		uri:            "mongodb://localhost:27017",
		database:       defaultDatabase,
		connectTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s.client = client
	s.db = client.Database(s.database)
	return s, nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

// Migrate creates the unique and query indexes. Safe to repeat.
func (s *Store) Migrate(ctx context.Context) error {
	employees := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employee_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Sparse: employees without a phone do not collide.
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "name", Value: 1}},
		},
	}
	if _, err := s.db.Collection(colEmployees).Indexes().CreateMany(ctx, employees); err != nil {
		return fmt.Errorf("employee indexes: %w", err)
	}

	faces := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}
	if _, err := s.db.Collection(colFaces).Indexes().CreateMany(ctx, faces); err != nil {
		return fmt.Errorf("face indexes: %w", err)
	}

	attendance := []mongo.IndexModel{
		{
			// The one-record-per-day invariant.
			Keys:    bson.D{{Key: "employee_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}
	if _, err := s.db.Collection(colAttendance).Indexes().CreateMany(ctx, attendance); err != nil {
		return fmt.Errorf("attendance indexes: %w", err)
	}

	events := []mongo.IndexModel{
		{Keys: bson.D{{Key: "captured_at", Value: -1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}},
	}
	if _, err := s.db.Collection(colEvents).Indexes().CreateMany(ctx, events); err != nil {
		return fmt.Errorf("event indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}

// observe records latency and error metrics for one store operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(op)
	}
}

var _ store.Store = (*Store)(nil)
