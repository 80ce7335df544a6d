package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNoAuth is returned when Strava has not been connected yet
var ErrNoAuth = errors.New("no Strava authentication stored")

// GetStravaAuth returns the tokens used to fetch activity streams for replay
func (db *DB) GetStravaAuth(ctx context.Context) (*StravaAuth, error) {
	var a StravaAuth
	var expiresAt int64
	err := db.QueryRowContext(ctx, `
		SELECT athlete_id, scope, access_token, refresh_token, expires_at
		FROM strava_auth
		WHERE id = 1
	`).Scan(&a.AthleteID, &a.Scope, &a.AccessToken, &a.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAuth
	}
	if err != nil {
		return nil, err
	}

	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

// SaveStravaAuth replaces the stored connection, granted scope included
func (db *DB) SaveStravaAuth(ctx context.Context, a *StravaAuth) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO strava_auth (id, athlete_id, scope, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			scope = excluded.scope,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, a.AthleteID, a.Scope, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix())
	return err
}

// UpdateStravaTokens stores refreshed tokens and keeps the athlete and
// scope. It returns ErrNoAuth when Strava was never connected.
func (db *DB) UpdateStravaTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE strava_auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, accessToken, refreshToken, expiresAt.Unix())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNoAuth
	}
	return nil
}
