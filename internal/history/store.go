package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"missioncontrol/pkg/db"
	"missioncontrol/pkg/migration"
)

// Source yields report events newer than a cutoff.
type Source interface {
	Events(ctx context.Context, since time.Time) ([]Event, error)
}

// Store persists events in the report_events table.
type Store struct {
	pool *db.Pool
}

// Open runs pending migrations on pool and returns a store over it.
func Open(ctx context.Context, pool *db.Pool) (*Store, error) {
	if err := migration.NewRunner(pool.Write()).Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Record appends events in order. Zero timestamps are stamped with now.
func (s *Store) Record(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now()
	return s.pool.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO report_events (agent, task, accomplished, blocking, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ev := range events {
			ts := ev.Timestamp
			if ts.IsZero() {
				ts = now
			}
			if _, err := stmt.ExecContext(ctx, ev.Agent, ev.Task, ev.Accomplished, ev.Blocking, ev.Status, ts.UnixMilli()); err != nil {
				return fmt.Errorf("insert event for %s: %w", ev.Agent, err)
			}
		}
		return nil
	})
}

// Events returns events strictly newer than since, in insertion order.
func (s *Store) Events(ctx context.Context, since time.Time) ([]Event, error) {
	rows, err := s.pool.Read().QueryContext(ctx, `
		SELECT agent, task, accomplished, blocking, status, created_at
		FROM report_events
		WHERE created_at > ?
		ORDER BY id
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			ms int64
		)
		if err := rows.Scan(&ev.Agent, &ev.Task, &ev.Accomplished, &ev.Blocking, &ev.Status, &ms); err != nil {
			return nil, err
		}
		ev.Timestamp = time.UnixMilli(ms)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Prune deletes events at or before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.pool.Write().ExecContext(ctx, `DELETE FROM report_events WHERE created_at <= ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// FileSource serves events from a JSON file, re-read on every call.
type FileSource struct {
	Path string
}

// Events loads the file and keeps events newer than since.
func (f FileSource) Events(_ context.Context, since time.Time) ([]Event, error) {
	all, err := LoadFile(f.Path)
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		return all, nil
	}
	var out []Event
	for _, ev := range all {
		if ev.Timestamp.After(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}
