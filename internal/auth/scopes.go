package auth

// DefaultScopes are the Spotify OAuth scopes required by the exposed
// tools, and nothing more:
//   - playback state reads (get_playback_state)
//   - playback state writes (play_track, pause_playback)
//   - currently-playing reads (playback state includes the current item)
//   - private playlist reads (get_user_playlists)
//
// search_tracks needs no user scope beyond a valid user token.
var DefaultScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
}
