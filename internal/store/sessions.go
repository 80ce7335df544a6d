package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sessionColumns = `id, mode, started_at, ended_at, elapsed_ms, samples, accepted, best_pace, last_pace`

// SaveSession inserts a finished session, replacing any row with the same id
func (db *DB) SaveSession(ctx context.Context, s *Session) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			elapsed_ms = excluded.elapsed_ms,
			samples = excluded.samples,
			accepted = excluded.accepted,
			best_pace = excluded.best_pace,
			last_pace = excluded.last_pace
	`,
		s.ID,
		s.Mode,
		s.StartedAt.UTC().Format(timeLayout),
		s.EndedAt.UTC().Format(timeLayout),
		s.Elapsed.Milliseconds(),
		s.Samples,
		s.Accepted,
		s.BestPace,
		s.LastPace,
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession retrieves a session by id
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns the most recent sessions first. limit <= 0 means all.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var startedAt, endedAt string
	var elapsedMs int64
	var best, last sql.NullFloat64

	if err := row.Scan(&s.ID, &s.Mode, &startedAt, &endedAt, &elapsedMs,
		&s.Samples, &s.Accepted, &best, &last); err != nil {
		return nil, err
	}

	var err error
	if s.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if s.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
		return nil, fmt.Errorf("parsing ended_at: %w", err)
	}
	s.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if best.Valid {
		s.BestPace = &best.Float64
	}
	if last.Valid {
		s.LastPace = &last.Float64
	}
	return &s, nil
}
