package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// ErrNoVelocity is returned when an activity has no velocity_smooth stream
var ErrNoVelocity = errors.New("activity has no velocity stream")

// Client fetches recorded activities to replay through the pace filter
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// NewClient creates a client authorized by tokenSource
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return newClient(oauth2.NewClient(context.Background(), tokenSource), BaseURL)
}

func newClient(hc *http.Client, baseURL string) *Client {
	return &Client{
		httpClient:  hc,
		baseURL:     baseURL,
		rateLimiter: NewRateLimiter(),
	}
}

// GetActivity fetches an activity summary
func (c *Client) GetActivity(ctx context.Context, activityID int64) (*Activity, error) {
	var a Activity
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d", activityID), nil, &a); err != nil {
		return nil, fmt.Errorf("fetching activity %d: %w", activityID, err)
	}
	return &a, nil
}

// GetVelocityStream fetches the time and velocity_smooth streams of an
// activity. It returns ErrNoVelocity when the activity has no speed data.
func (c *Client) GetVelocityStream(ctx context.Context, activityID int64) (*Streams, error) {
	params := url.Values{}
	params.Set("keys", "time,velocity_smooth")
	params.Set("key_by_type", "true")

	var streams Streams
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/streams", activityID), params, &streams); err != nil {
		return nil, fmt.Errorf("fetching streams for %d: %w", activityID, err)
	}
	if !streams.HasVelocity() {
		return nil, ErrNoVelocity
	}
	return &streams, nil
}

// RateLimitStatus returns the remaining requests in each window
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
