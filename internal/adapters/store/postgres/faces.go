package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

func scanSample(row pgx.Row) (model.FaceSample, error) {
	var s model.FaceSample
	var encoding []float32
	err := row.Scan(&s.SampleID, &s.Name, &s.EmployeeID, &encoding,
		&s.Quality, &s.Source, &s.CreatedAt)
	s.Encoding = types.Encoding(encoding)
	return s, err
}

// AddSample appends one face sample.
func (s *Store) AddSample(ctx context.Context, sample model.FaceSample) (err error) {
	start := time.Now()
	defer func() { observe("add_sample", start, err) }()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO face_samples (sample_id, name, employee_id, encoding, quality, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sample.SampleID, sample.Name, sample.EmployeeID,
		[]float32(sample.Encoding), sample.Quality, sample.Source, sample.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert face sample: %w", err)
	}
	return nil
}

const sampleColumns = `sample_id, name, COALESCE(employee_id, ''), encoding, quality, source, created_at`

// SamplesByName returns every sample enrolled under name.
func (s *Store) SamplesByName(ctx context.Context, name string) (out []model.FaceSample, err error) {
	start := time.Now()
	defer func() { observe("samples_by_name", start, err) }()

	rows, err := s.pool.Query(ctx,
		`SELECT `+sampleColumns+` FROM face_samples WHERE name = $1 ORDER BY created_at`, name)
	if err != nil {
		return nil, fmt.Errorf("select face samples: %w", err)
	}
	return collectSamples(rows)
}

// AllSamples returns every enrolled sample ordered by name.
func (s *Store) AllSamples(ctx context.Context) (out []model.FaceSample, err error) {
	start := time.Now()
	defer func() { observe("all_samples", start, err) }()

	rows, err := s.pool.Query(ctx,
		`SELECT `+sampleColumns+` FROM face_samples ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("select face samples: %w", err)
	}
	return collectSamples(rows)
}

func collectSamples(rows pgx.Rows) ([]model.FaceSample, error) {
	defer rows.Close()

	var out []model.FaceSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face sample: %w", err)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face samples: %w", err)
	}
	return out, nil
}

// Names returns the distinct enrolled names.
func (s *Store) Names(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() { observe("face_names", start, err) }()

	rows, err := s.pool.Query(ctx, `SELECT DISTINCT name FROM face_samples ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select face names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan face name: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face names: %w", err)
	}
	return names, nil
}

// CountByName returns the number of samples enrolled under name.
func (s *Store) CountByName(ctx context.Context, name string) (n int, err error) {
	start := time.Now()
	defer func() { observe("count_by_name", start, err) }()

	if err = s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM face_samples WHERE name = $1`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count face samples: %w", err)
	}
	return n, nil
}

// DeleteByName removes every sample enrolled under name.
func (s *Store) DeleteByName(ctx context.Context, name string) (n int, err error) {
	start := time.Now()
	defer func() { observe("delete_by_name", start, err) }()

	tag, err := s.pool.Exec(ctx, `DELETE FROM face_samples WHERE name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("delete face samples: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
