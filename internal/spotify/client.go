package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// Pagination bounds per the Web API contract, shared by the search and
// playlist listing endpoints.
const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

// TokenSource supplies a valid bearer credential for each request. The
// auth manager implements it; tests substitute a stub.
type TokenSource interface {
	EnsureValid(ctx context.Context) (string, error)
}

// Client talks to the Spotify Web API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Web API client. A coarse client-side limiter
// smooths request bursts; the per-class scheduling lives in the
// governor.
func NewClient(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs an authenticated request against the API. A nil result
// skips body decoding; 204 responses report ok=false so callers can
// distinguish "no content" from an empty object.
func (c *Client) do(ctx context.Context, method, endpoint string, body, result interface{}) (ok bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	token, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return false, err
	}

	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, payload)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, errorFromResponse(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return true, nil
}

// SearchTracks searches the catalog for tracks matching query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(limit))

	var result SearchResult
	if _, err := c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Tracks.Items, nil
}

// CurrentPlayback returns the user's player state, or nil when no
// device is active (the API answers 204 in that case).
func (c *Client) CurrentPlayback(ctx context.Context) (*PlaybackState, error) {
	var state PlaybackState
	ok, err := c.do(ctx, http.MethodGet, "/me/player", nil, &state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Play starts or resumes playback on the active device. With a track
// URI it switches playback to that track; without one it resumes
// whatever was paused.
func (c *Client) Play(ctx context.Context, trackURI string) error {
	var body interface{}
	if trackURI != "" {
		body = map[string][]string{"uris": {trackURI}}
	}
	_, err := c.do(ctx, http.MethodPut, "/me/player/play", body, nil)
	return err
}

// Pause pauses playback on the active device.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/me/player/pause", nil, nil)
	return err
}

// UserPlaylists retrieves the current user's playlists.
func (c *Client) UserPlaylists(ctx context.Context, limit int) (*PaginatedPlaylists, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var result PaginatedPlaylists
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/me/playlists?limit=%d", limit), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
