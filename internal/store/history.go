package store

import (
	"context"
	"fmt"
	"time"
)

// Clock supplies row timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Record is one logged resolution.
type Record struct {
	ID           string    `json:"id"`
	Input        string    `json:"input"`
	Dialect      string    `json:"dialect"`
	OK           bool      `json:"ok"`
	Canonical    string    `json:"canonical,omitempty"`
	SQL          string    `json:"sql,omitempty"`
	FailCategory string    `json:"fail_category,omitempty"`
	Relaxed      bool      `json:"relaxed,omitempty"`
	Catalog      string    `json:"catalog,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Append writes rec. A zero CreatedAt is filled from the store's clock.
// Appending an id twice is an error.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("append resolution: empty id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (id, input, dialect, ok, canonical, sql_text, fail_category, relaxed, catalog, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Input, rec.Dialect, boolInt(rec.OK), rec.Canonical, rec.SQL,
		rec.FailCategory, boolInt(rec.Relaxed), rec.Catalog,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append resolution %s: %w", rec.ID, err)
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT id, input, dialect, ok, canonical, sql_text, fail_category, relaxed, catalog, created_at
		FROM resolutions
		ORDER BY created_at DESC, id COLLATE BINARY DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ok, relaxed int
		var created string
		if err := rows.Scan(&rec.ID, &rec.Input, &rec.Dialect, &ok, &rec.Canonical, &rec.SQL,
			&rec.FailCategory, &relaxed, &rec.Catalog, &created); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		rec.OK = ok != 0
		rec.Relaxed = relaxed != 0
		if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
