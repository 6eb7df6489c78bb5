package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/rollcall/internal/domain/model"
)

// AddSample appends one face sample.
func (s *Store) AddSample(ctx context.Context, sample model.FaceSample) (err error) {
	start := time.Now()
	defer func() { observe("add_sample", start, err) }()

	if _, err = s.db.Collection(colFaces).InsertOne(ctx, sample); err != nil {
		return fmt.Errorf("insert face sample: %w", err)
	}
	return nil
}

// SamplesByName returns every sample enrolled under name.
func (s *Store) SamplesByName(ctx context.Context, name string) (out []model.FaceSample, err error) {
	start := time.Now()
	defer func() { observe("samples_by_name", start, err) }()

	cur, err := s.db.Collection(colFaces).Find(ctx, bson.M{"name": name})
	if err != nil {
		return nil, fmt.Errorf("find face samples: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode face samples: %w", err)
	}
	return out, nil
}

// AllSamples returns every enrolled sample ordered by name.
func (s *Store) AllSamples(ctx context.Context) (out []model.FaceSample, err error) {
	start := time.Now()
	defer func() { observe("all_samples", start, err) }()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := s.db.Collection(colFaces).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find face samples: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode face samples: %w", err)
	}
	return out, nil
}

// Names returns the distinct enrolled names.
func (s *Store) Names(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() { observe("face_names", start, err) }()

	raw, err := s.db.Collection(colFaces).Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct face names: %w", err)
	}
	names = make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CountByName returns the number of samples enrolled under name.
func (s *Store) CountByName(ctx context.Context, name string) (n int, err error) {
	start := time.Now()
	defer func() { observe("count_by_name", start, err) }()

	count, err := s.db.Collection(colFaces).CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return 0, fmt.Errorf("count face samples: %w", err)
	}
	return int(count), nil
}

// DeleteByName removes every sample enrolled under name.
func (s *Store) DeleteByName(ctx context.Context, name string) (n int, err error) {
	start := time.Now()
	defer func() { observe("delete_by_name", start, err) }()

	res, err := s.db.Collection(colFaces).DeleteMany(ctx, bson.M{"name": name})
	if err != nil {
		return 0, fmt.Errorf("delete face samples: %w", err)
	}
	return int(res.DeletedCount), nil
}
