package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"pacetracker/internal/store"
)

// refreshBuffer is how long before expiry a token is refreshed
const refreshBuffer = 60 * time.Second

// TokenSource refreshes tokens as needed and hands each new token to
// onRefresh for persistence
type TokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(context.Context, *oauth2.Token) error
	mu        sync.Mutex
}

// NewTokenSource creates a refreshing token source
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(context.Context, *oauth2.Token) error) *TokenSource {
	return &TokenSource{
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	ctx := context.Background()
	newToken, err := ts.config.TokenSource(ctx, ts.token).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	if ts.onRefresh != nil {
		if err := ts.onRefresh(ctx, newToken); err != nil {
			return nil, fmt.Errorf("persisting token: %w", err)
		}
	}

	ts.token = newToken
	return newToken, nil
}

// FromStore builds a token source from the saved Strava connection.
// Refreshed tokens are written back. It returns store.ErrNoAuth when Strava
// was never connected and ErrMissingScope when the connection cannot read
// activity streams.
func FromStore(ctx context.Context, cfg *oauth2.Config, db *store.DB) (*TokenSource, error) {
	a, err := db.GetStravaAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !HasReplayScope(a.Scope) {
		return nil, ErrMissingScope
	}

	token := &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		Expiry:       a.ExpiresAt,
		TokenType:    "Bearer",
	}
	return NewTokenSource(cfg, token, func(ctx context.Context, t *oauth2.Token) error {
		return db.UpdateStravaTokens(ctx, t.AccessToken, t.RefreshToken, t.Expiry)
	}), nil
}

// Save stores the result of a completed flow. A connection without
// ReplayScope is still saved and reported as ErrMissingScope.
func Save(ctx context.Context, db *store.DB, result *AuthResult) error {
	err := db.SaveStravaAuth(ctx, &store.StravaAuth{
		AthleteID:    result.AthleteID,
		Scope:        result.Scope,
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
		ExpiresAt:    result.Token.Expiry,
	})
	if err != nil {
		return err
	}
	if !HasReplayScope(result.Scope) {
		return ErrMissingScope
	}
	return nil
}
