package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

const eventColumns = `event_id, name, confidence, captured_at,
	loc_top, loc_right, loc_bottom, loc_left, source`

func scanEvent(row pgx.Row) (model.RecognitionEvent, error) {
	var e model.RecognitionEvent
	var top, right, bottom, left *int
	err := row.Scan(&e.EventID, &e.Name, &e.Confidence, &e.CapturedAt,
		&top, &right, &bottom, &left, &e.Source)
	if err == nil && top != nil {
		e.Location = &types.Location{Top: *top, Right: *right, Bottom: *bottom, Left: *left}
	}
	return e, err
}

// RecordEvent appends one recognition event.
func (s *Store) RecordEvent(ctx context.Context, e model.RecognitionEvent) (err error) {
	start := time.Now()
	defer func() { observe("record_event", start, err) }()

	var top, right, bottom, left any
	if e.Location != nil {
		top, right, bottom, left = e.Location.Top, e.Location.Right, e.Location.Bottom, e.Location.Left
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO recognition_events
			(event_id, name, confidence, captured_at, loc_top, loc_right, loc_bottom, loc_left, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.EventID, e.Name, e.Confidence, e.CapturedAt, top, right, bottom, left, e.Source,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) (out []model.RecognitionEvent, err error) {
	start := time.Now()
	defer func() { observe("recent_events", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM recognition_events
		ORDER BY captured_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return collectEvents(rows)
}

// EventsSince returns the events captured at or after t, oldest first.
func (s *Store) EventsSince(ctx context.Context, t time.Time) (out []model.RecognitionEvent, err error) {
	start := time.Now()
	defer func() { observe("events_since", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM recognition_events
		WHERE captured_at >= $1 ORDER BY captured_at`, t)
	if err != nil {
		return nil, fmt.Errorf("select events since: %w", err)
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]model.RecognitionEvent, error) {
	defer rows.Close()

	var out []model.RecognitionEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
