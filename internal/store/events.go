package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pacetracker/internal/eventlog"
)

// Append stores one event. It satisfies eventlog.Appender.
func (db *DB) Append(ctx context.Context, e eventlog.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	var sessionID any
	if e.SessionID != "" {
		sessionID = e.SessionID
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO events (id, type, source, session_id, t, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, string(e.Type), string(e.Source), sessionID, e.Time.UTC().Format(timeLayout), string(payload))
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, oldest first
func (db *DB) RecentEvents(ctx context.Context, limit int) ([]eventlog.Entry, error) {
	return db.queryEvents(ctx, `
		SELECT payload FROM (
			SELECT payload, t FROM events ORDER BY t DESC LIMIT ?
		) ORDER BY t ASC
	`, limit)
}

// SessionEvents returns every event of one session, oldest first
func (db *DB) SessionEvents(ctx context.Context, sessionID string) ([]eventlog.Entry, error) {
	return db.queryEvents(ctx, `
		SELECT payload FROM events WHERE session_id = ? ORDER BY t ASC
	`, sessionID)
}

// DeleteEventsBefore removes events older than cutoff and reports how many
func (db *DB) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM events WHERE t < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...any) ([]eventlog.Entry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []eventlog.Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e eventlog.Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
