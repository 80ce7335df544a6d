package auth

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"

	// ReplayScope lets replay read velocity streams of private activities too
	ReplayScope = "activity:read_all"
)

// Scopes requested on the consent screen. Strava expects them comma separated.
var Scopes = []string{"read," + ReplayScope}

// ErrMissingScope means the athlete unticked activity access on the consent
// screen, so streams cannot be replayed
var ErrMissingScope = errors.New("strava connection lacks " + ReplayScope)

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // defaults to the local callback server
}

// NewOAuthConfig creates an oauth2.Config for reading Strava activities
func NewOAuthConfig(cfg Config) *oauth2.Config {
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      Scopes,
	}
}

// AuthResult is a completed connection: the token, the athlete and the
// scope Strava actually granted
type AuthResult struct {
	Token     *oauth2.Token
	AthleteID int64
	Scope     string
}

// HasReplayScope reports whether a granted scope list allows stream replay
func HasReplayScope(granted string) bool {
	for _, s := range strings.Split(granted, ",") {
		if strings.TrimSpace(s) == ReplayScope {
			return true
		}
	}
	return false
}

// ExtractAthleteID reads the athlete id Strava puts in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]any); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}
