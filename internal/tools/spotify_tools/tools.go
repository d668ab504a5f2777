package spotify_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rakshitha2207/spotify-mcp/internal/governor"
	"github.com/rakshitha2207/spotify-mcp/internal/logging"
	"github.com/rakshitha2207/spotify-mcp/internal/server"
	"github.com/rakshitha2207/spotify-mcp/internal/spotify"
	"github.com/rakshitha2207/spotify-mcp/internal/tools/common"
)

// noActivePlayback is the sentinel returned by get_playback_state when
// no device is playing.
const noActivePlayback = "No active playback"

// toolHandler is the mcp-go tool handler signature.
type toolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// RegisterSpotifyTools registers all Spotify tools with the MCP server.
// Unknown tool names never reach these handlers; the protocol layer
// rejects them before dispatch.
func RegisterSpotifyTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	searchTracksTool := mcp.NewTool("search_tracks",
		mcp.WithDescription("Search the Spotify catalog for tracks matching a query. Returns up to 5 track summaries in relevance order."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query, e.g. a track title, artist name, or both"),
		),
	)
	s.AddTool(searchTracksTool, common.InstrumentedToolHandler("search_tracks", sc, searchTracksHandler(sc)))

	getPlaybackStateTool := mcp.NewTool("get_playback_state",
		mcp.WithDescription("Get the user's current playback state, including the active device and the playing track."),
	)
	s.AddTool(getPlaybackStateTool, common.InstrumentedToolHandler("get_playback_state", sc, getPlaybackStateHandler(sc)))

	playTrackTool := mcp.NewTool("play_track",
		mcp.WithDescription("Start playback of a track on the user's active device."),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("Spotify track URI, e.g. spotify:track:4iV5W9uYEdYUVa79Axb7Rh"),
		),
	)
	s.AddTool(playTrackTool, common.InstrumentedToolHandler("play_track", sc, playTrackHandler(sc)))

	pausePlaybackTool := mcp.NewTool("pause_playback",
		mcp.WithDescription("Pause playback on the user's active device."),
	)
	s.AddTool(pausePlaybackTool, common.InstrumentedToolHandler("pause_playback", sc, pausePlaybackHandler(sc)))

	getUserPlaylistsTool := mcp.NewTool("get_user_playlists",
		mcp.WithDescription("List the user's playlists."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of playlists to return (default 20, max 50)"),
		),
	)
	s.AddTool(getUserPlaylistsTool, common.InstrumentedToolHandler("get_user_playlists", sc, getUserPlaylistsHandler(sc)))

	return nil
}

// governed runs op through the credential manager and call governor,
// recording the remote operation's outcome. Argument validation must
// happen before calling this so that malformed requests touch neither
// the credential state nor the rate-limit ledger.
func governed(ctx context.Context, sc *server.ServerContext, operation string, class governor.EndpointClass, op func(ctx context.Context) error) error {
	if _, err := sc.Auth().EnsureValid(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := sc.Governor().Execute(ctx, class, op)
	duration := time.Since(start)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		var rateErr *governor.RateLimitedError
		if errors.As(err, &rateErr) {
			sc.Metrics().RecordRateLimitHit(ctx, string(class))
		}
	}
	sc.Metrics().RecordRemoteOperation(ctx, operation, string(class), status, duration)
	return err
}

// textResult renders v as indented JSON inside a text content block.
func textResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return common.ErrorResult(fmt.Errorf("failed to encode result: %w", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(request mcp.CallToolRequest, key string) (string, bool) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	val, ok := args[key].(string)
	return val, ok
}

// numberArg reads an optional numeric argument; JSON numbers arrive as
// float64.
func numberArg(request mcp.CallToolRequest, key string) (int, bool) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	val, ok := args[key].(float64)
	return int(val), ok
}

func searchTracksHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, ok := stringArg(request, "query")
		if !ok || query == "" {
			return common.ErrorResult(common.InvalidArgument("query is required")), nil
		}

		var tracks []spotify.Track
		err := governed(ctx, sc, "search", governor.ClassSearch, func(ctx context.Context) error {
			var opErr error
			tracks, opErr = sc.Spotify().SearchTracks(ctx, query, maxSearchResults)
			return opErr
		})
		if err != nil {
			return common.ErrorResult(err), nil
		}

		return textResult(summarizeTracks(tracks))
	}
}

func getPlaybackStateHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var state *spotify.PlaybackState
		err := governed(ctx, sc, "current_playback", governor.ClassPlayback, func(ctx context.Context) error {
			var opErr error
			state, opErr = sc.Spotify().CurrentPlayback(ctx)
			return opErr
		})
		if err != nil {
			return common.ErrorResult(err), nil
		}

		if state == nil {
			return mcp.NewToolResultText(noActivePlayback), nil
		}
		return textResult(state)
	}
}

func playTrackHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uri, ok := stringArg(request, "uri")
		if !ok || uri == "" {
			return common.ErrorResult(common.InvalidArgument("uri is required")), nil
		}

		err := governed(ctx, sc, "play", governor.ClassPlayback, func(ctx context.Context) error {
			return sc.Spotify().Play(ctx, uri)
		})
		if err != nil {
			return common.ErrorResult(err), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Playback started: %s", uri)), nil
	}
}

func pausePlaybackHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		err := governed(ctx, sc, "pause", governor.ClassPlayback, func(ctx context.Context) error {
			return sc.Spotify().Pause(ctx)
		})
		if err != nil {
			return common.ErrorResult(err), nil
		}

		return mcp.NewToolResultText("Playback paused"), nil
	}
}

func getUserPlaylistsHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit, _ := numberArg(request, "limit")

		var playlists *spotify.PaginatedPlaylists
		err := governed(ctx, sc, "user_playlists", governor.ClassSearch, func(ctx context.Context) error {
			var opErr error
			playlists, opErr = sc.Spotify().UserPlaylists(ctx, limit)
			return opErr
		})
		if err != nil {
			return common.ErrorResult(err), nil
		}

		return textResult(summarizePlaylists(playlists.Items))
	}
}
