package spotify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

// RateLimitError is a 429 answer. It exposes the server's Retry-After
// hint so the call governor can schedule around it.
type RateLimitError struct {
	Hint time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("spotify API throttled the request, retry after %s", e.Hint)
}

// RetryAfter reports the server's suggested wait, zero when the header
// was absent or unparseable.
func (e *RateLimitError) RetryAfter() time.Duration { return e.Hint }

// apiErrorBody is the standard Web API error envelope.
type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorFromResponse maps a non-2xx response to a typed error. The body
// is consumed.
func errorFromResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		var hint time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			hint = time.Duration(secs) * time.Second
		}
		return &RateLimitError{Hint: hint}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var parsed apiErrorBody
		if json.Unmarshal(body, &parsed) == nil {
			apiErr.Message = parsed.Error.Message
		}
	}
	return apiErr
}
