package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/rollcall/internal/domain/model"
)

// RecordEvent appends one recognition event.
func (s *Store) RecordEvent(ctx context.Context, e model.RecognitionEvent) (err error) {
	start := time.Now()
	defer func() { observe("record_event", start, err) }()

	if _, err = s.db.Collection(colEvents).InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) (out []model.RecognitionEvent, err error) {
	start := time.Now()
	defer func() { observe("recent_events", start, err) }()

	opts := options.Find().SetSort(bson.D{{Key: "captured_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(colEvents).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return out, nil
}

// EventsSince returns the events captured at or after t, oldest first.
func (s *Store) EventsSince(ctx context.Context, t time.Time) (out []model.RecognitionEvent, err error) {
	start := time.Now()
	defer func() { observe("events_since", start, err) }()

	filter := bson.M{"captured_at": bson.M{"$gte": t}}
	opts := options.Find().SetSort(bson.D{{Key: "captured_at", Value: 1}})
	cur, err := s.db.Collection(colEvents).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events since: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode events since: %w", err)
	}
	return out, nil
}
