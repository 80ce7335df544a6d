package auth

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"pacetracker/internal/store"
)

func tokenServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret"})
	cfg.Endpoint.TokenURL = tokenURL
	return cfg
}

func TestNewOAuthConfigDefaults(t *testing.T) {
	cfg := NewOAuthConfig(Config{ClientID: "id"})
	if cfg.RedirectURL != DefaultRedirectURL {
		t.Errorf("RedirectURL = %q, want %q", cfg.RedirectURL, DefaultRedirectURL)
	}
	if cfg.Endpoint.AuthURL != AuthURL {
		t.Errorf("AuthURL = %q, want %q", cfg.Endpoint.AuthURL, AuthURL)
	}
}

func TestExtractAthleteID(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{
		"athlete": map[string]any{"id": float64(42)},
	})
	if got := ExtractAthleteID(tok); got != 42 {
		t.Errorf("ExtractAthleteID() = %d, want 42", got)
	}
	if got := ExtractAthleteID(&oauth2.Token{}); got != 0 {
		t.Errorf("ExtractAthleteID(no extra) = %d, want 0", got)
	}
}

func TestAuthenticateFlow(t *testing.T) {
	srv := tokenServer(t, `{"access_token":"a1","refresh_token":"r1","expires_in":3600,"token_type":"Bearer","athlete":{"id":42}}`)
	cfg := testConfig(srv.URL)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	callback := "http://" + listener.Addr().String() + "/callback"

	go func() {
		buf := make([]byte, 4096)
		n, err := pr.Read(buf)
		if err != nil {
			return
		}
		m := regexp.MustCompile(`state=([0-9a-f]+)`).FindSubmatch(buf[:n])
		if m == nil {
			t.Errorf("no state in prompt %q", buf[:n])
			return
		}
		resp, err := http.Get(callback + "?code=abc&scope=read,activity:read_all&state=" + string(m[1]))
		if err != nil {
			t.Errorf("callback request: %v", err)
			return
		}
		resp.Body.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := authenticate(ctx, cfg, listener, pw)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if result.Token.AccessToken != "a1" {
		t.Errorf("AccessToken = %q, want a1", result.Token.AccessToken)
	}
	if result.AthleteID != 42 {
		t.Errorf("AthleteID = %d, want 42", result.AthleteID)
	}
	if result.Scope != "read,activity:read_all" {
		t.Errorf("Scope = %q, want read,activity:read_all", result.Scope)
	}
}

func TestAuthenticateStateMismatch(t *testing.T) {
	cfg := testConfig("http://unused")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	callback := "http://" + listener.Addr().String() + "/callback"

	pr, pw := io.Pipe()
	defer pr.Close()
	go func() {
		buf := make([]byte, 4096)
		if _, err := pr.Read(buf); err != nil {
			return
		}
		resp, err := http.Get(callback + "?code=abc&state=forged")
		if err == nil {
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := authenticate(ctx, cfg, listener, pw); err == nil {
		t.Fatalf("authenticate succeeded with forged state")
	}
}

func TestTokenSourceRefreshPersists(t *testing.T) {
	srv := tokenServer(t, `{"access_token":"a2","refresh_token":"r2","expires_in":3600,"token_type":"Bearer"}`)
	cfg := testConfig(srv.URL)

	db, err := store.OpenPath(":memory:")
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	err = Save(ctx, db, &AuthResult{
		AthleteID: 7,
		Scope:     "read," + ReplayScope,
		Token:     &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	ts, err := FromStore(ctx, cfg, db)
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "a2" {
		t.Errorf("AccessToken = %q, want a2", tok.AccessToken)
	}

	saved, err := db.GetStravaAuth(ctx)
	if err != nil {
		t.Fatalf("GetStravaAuth: %v", err)
	}
	if saved.AccessToken != "a2" || saved.RefreshToken != "r2" || saved.AthleteID != 7 {
		t.Errorf("saved auth = %+v, want a2/r2 for athlete 7", saved)
	}
}

func TestTokenSourceValidTokenNotRefreshed(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	tok := &oauth2.Token{AccessToken: "a1", Expiry: time.Now().Add(time.Hour)}
	ts := NewTokenSource(testConfig(srv.URL), tok, nil)

	got, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got.AccessToken != "a1" {
		t.Errorf("AccessToken = %q, want a1", got.AccessToken)
	}
	if calls != 0 {
		t.Errorf("token endpoint called %d times, want 0", calls)
	}
}

func TestHasReplayScope(t *testing.T) {
	tests := []struct {
		granted string
		want    bool
	}{
		{"read,activity:read_all", true},
		{"activity:read_all", true},
		{"read, activity:read_all", true},
		{"read,activity:read", false},
		{"read", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasReplayScope(tt.granted); got != tt.want {
			t.Errorf("HasReplayScope(%q) = %v, want %v", tt.granted, got, tt.want)
		}
	}
}

func TestMissingScopeNeedsReconnect(t *testing.T) {
	db, err := store.OpenPath(":memory:")
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	result := &AuthResult{
		AthleteID: 7,
		Scope:     "read",
		Token:     &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: time.Now().Add(time.Hour)},
	}
	if err := Save(ctx, db, result); !errors.Is(err, ErrMissingScope) {
		t.Errorf("Save() err = %v, want ErrMissingScope", err)
	}

	if _, err := FromStore(ctx, testConfig("http://unused"), db); !errors.Is(err, ErrMissingScope) {
		t.Errorf("FromStore() err = %v, want ErrMissingScope", err)
	}
}
