// Package spotify is a thin client for the Spotify Web API endpoints the
// tool surface needs.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/.
// The client attaches bearer credentials supplied by a TokenSource on
// every request and translates HTTP failures into typed errors so that
// callers can tell a throttling rejection apart from an ordinary API
// failure. Rate-limit scheduling happens a layer above; the client only
// reports what the remote side said.
package spotify
