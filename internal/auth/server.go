package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CallbackAddr is where the local callback server listens
	CallbackAddr = "localhost:8089"
	// DefaultRedirectURL points Strava back at the callback server
	DefaultRedirectURL = "http://" + CallbackAddr + "/callback"
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

const successPage = `<!DOCTYPE html>
<html>
<head><title>pacetracker</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>Connected to Strava</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// Authenticate runs the authorization code flow. The URL to open is written
// to out and the code is caught by a callback server on CallbackAddr.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*AuthResult, error) {
	listener, err := net.Listen("tcp", CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	return authenticate(ctx, cfg, listener, out)
}

func authenticate(ctx context.Context, cfg *oauth2.Config, listener net.Listener, out io.Writer) (*AuthResult, error) {
	state, err := generateState()
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("generating state: %w", err)
	}

	grants := make(chan grant, 1)
	errChan := make(chan error, 1)
	fail := func(err error) {
		select {
		case errChan <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			fail(errors.New("state mismatch"))
			http.Error(w, "State mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			fail(fmt.Errorf("auth error: %s", q.Get("error")))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
		case q.Get("code") == "":
			fail(errors.New("no code in callback"))
			http.Error(w, "No authorization code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, successPage)
			select {
			case grants <- grant{code: q.Get("code"), scope: q.Get("scope")}:
			default:
			}
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			fail(fmt.Errorf("server error: %w", err))
		}
	}()
	defer shutdownServer(server)

	fmt.Fprintf(out, "\nTo connect Strava, open this URL in your browser:\n\n  %s\n\nWaiting for authentication...\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var g grant
	select {
	case g = <-grants:
	case err := <-errChan:
		return nil, err
	case <-time.After(AuthTimeout):
		return nil, fmt.Errorf("authentication timeout after %v", AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, g.code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
		Scope:     g.scope,
	}, nil
}

// grant is what Strava hands the callback: the code and the scope the
// athlete left ticked
type grant struct {
	code  string
	scope string
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
