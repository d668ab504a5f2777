package spotify_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakshitha2207/spotify-mcp/internal/auth"
	"github.com/rakshitha2207/spotify-mcp/internal/governor"
	"github.com/rakshitha2207/spotify-mcp/internal/server"
	"github.com/rakshitha2207/spotify-mcp/internal/spotify"
	"github.com/rakshitha2207/spotify-mcp/internal/tools/common"
)

// stubCredentials counts EnsureValid calls and optionally fails them.
type stubCredentials struct {
	calls int
	err   error
}

func (s *stubCredentials) EnsureValid(context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "test-token", nil
}

// testEnv wires a ServerContext to a fake Web API.
type testEnv struct {
	sc       *server.ServerContext
	auth     *stubCredentials
	requests *int
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	creds := &stubCredentials{}
	client := spotify.NewClient(creds, spotify.WithBaseURL(srv.URL))
	gov := governor.New(governor.DefaultPolicy())
	sc := server.NewServerContext(context.Background(), creds, gov, client, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return &testEnv{sc: sc, auth: creds, requests: &requests}
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) common.Envelope {
	t.Helper()
	require.True(t, result.IsError)
	var envelope common.Envelope
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &envelope))
	return envelope
}

func TestSearchTracksReturnsAtMostFiveSummaries(t *testing.T) {
	var gotQuery string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		items := make([]map[string]interface{}, 0, 6)
		for _, name := range []string{"Help!", "Yesterday", "Let It Be", "Hey Jude", "Come Together", "Something"} {
			items = append(items, map[string]interface{}{
				"id":      "id-" + name,
				"name":    name,
				"uri":     "spotify:track:" + name,
				"artists": []map[string]string{{"name": "The Beatles"}},
				"album":   map[string]interface{}{"name": "Anthology", "release_date": "1965-08-06"},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tracks": map[string]interface{}{"items": items, "total": 6},
		})
	})

	result, err := searchTracksHandler(env.sc)(context.Background(), callRequest(map[string]interface{}{"query": "Beatles"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Beatles", gotQuery)

	var summaries []TrackSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
	require.Len(t, summaries, 5)
	assert.Equal(t, "Help!", summaries[0].Name, "relevance order must be preserved")
	assert.Equal(t, "The Beatles", summaries[0].Artist)
	assert.Equal(t, "1965-08-06", summaries[0].ReleaseDate)
	assert.Equal(t, 1, env.auth.calls)
}

func TestSearchTracksMissingQueryHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	result, err := searchTracksHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)

	envelope := decodeEnvelope(t, result)
	assert.Equal(t, common.KindInvalidArgument, envelope.Kind)

	assert.Zero(t, env.auth.calls, "validation failures must not touch the credential manager")
	assert.Zero(t, *env.requests, "validation failures must not issue remote calls")
	assert.True(t, env.sc.Governor().NextAllowedAt(governor.ClassSearch).IsZero(),
		"validation failures must not touch the rate-limit ledger")
}

func TestGetPlaybackStateNoActiveDevice(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	result, err := getPlaybackStateHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, noActivePlayback, resultText(t, result))
}

func TestGetPlaybackState(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"is_playing": true,
			"device":     map[string]interface{}{"name": "Kitchen"},
			"item":       map[string]interface{}{"name": "So What"},
		})
	})

	result, err := getPlaybackStateHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var state spotify.PlaybackState
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &state))
	assert.True(t, state.IsPlaying)
	assert.Equal(t, "Kitchen", state.Device.Name)
}

func TestPausePlaybackRateLimited(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	before := time.Now()
	result, err := pausePlaybackHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)

	envelope := decodeEnvelope(t, result)
	assert.Equal(t, common.KindRateLimited, envelope.Kind)
	assert.Equal(t, 7, envelope.RetryAfterSeconds)

	// The playback class is pushed forward by the 60s penalty window.
	next := env.sc.Governor().NextAllowedAt(governor.ClassPlayback)
	assert.WithinDuration(t, before.Add(60*time.Second), next, 2*time.Second)

	// The search class is unaffected.
	assert.True(t, env.sc.Governor().NextAllowedAt(governor.ClassSearch).IsZero())
}

func TestPlayTrack(t *testing.T) {
	var gotBody map[string][]string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	result, err := playTrackHandler(env.sc)(context.Background(), callRequest(map[string]interface{}{
		"uri": "spotify:track:abc",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "spotify:track:abc")
	assert.Equal(t, []string{"spotify:track:abc"}, gotBody["uris"])
}

func TestPlayTrackMissingURI(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	result, err := playTrackHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)

	envelope := decodeEnvelope(t, result)
	assert.Equal(t, common.KindInvalidArgument, envelope.Kind)
	assert.Zero(t, *env.requests)
}

func TestGetUserPlaylistsDefaultLimit(t *testing.T) {
	var gotLimit string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": "pl-1", "name": "Focus", "owner": map[string]string{"display_name": "alice"}},
			},
		})
	})

	result, err := getUserPlaylistsHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "20", gotLimit)

	var summaries []PlaylistSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "Focus", summaries[0].Name)
}

func TestCredentialFailureSurfacesAuthenticationError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	env.auth.err = &auth.AuthenticationError{Reason: "authorization code never arrived"}

	result, err := pausePlaybackHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)

	envelope := decodeEnvelope(t, result)
	assert.Equal(t, common.KindAuthenticationError, envelope.Kind)
	assert.Zero(t, *env.requests, "no remote call may be issued without a credential")
}

func TestRemoteFailureSurfacesRemoteOperationError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"status": 404, "message": "No active device found"},
		})
	})

	result, err := pausePlaybackHandler(env.sc)(context.Background(), callRequest(nil))
	require.NoError(t, err)

	envelope := decodeEnvelope(t, result)
	assert.Equal(t, common.KindRemoteOperationError, envelope.Kind)
	assert.Contains(t, envelope.Message, "No active device found")
}

func TestRegisterSpotifyTools(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	s := mcpserver.NewMCPServer("spotify-mcp", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterSpotifyTools(s, env.sc))
}
