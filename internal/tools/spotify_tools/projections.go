package spotify_tools

import (
	"strings"

	"github.com/rakshitha2207/spotify-mcp/internal/spotify"
)

// maxSearchResults caps the track summaries returned by search_tracks.
const maxSearchResults = 5

// TrackSummary is the output shape of search_tracks.
type TrackSummary struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseDate string `json:"release_date"`
	Popularity  int    `json:"popularity"`
	ID          string `json:"id"`
	URI         string `json:"uri"`
}

// PlaylistSummary is the output shape of get_user_playlists.
type PlaylistSummary struct {
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
	ID         string `json:"id"`
	URI        string `json:"uri"`
}

// summarizeTracks projects raw tracks into summaries, preserving the
// remote service's relevance order and keeping at most maxSearchResults.
func summarizeTracks(tracks []spotify.Track) []TrackSummary {
	if len(tracks) > maxSearchResults {
		tracks = tracks[:maxSearchResults]
	}

	summaries := make([]TrackSummary, 0, len(tracks))
	for _, t := range tracks {
		names := make([]string, 0, len(t.Artists))
		for _, a := range t.Artists {
			names = append(names, a.Name)
		}
		summaries = append(summaries, TrackSummary{
			Name:        t.Name,
			Artist:      strings.Join(names, ", "),
			Album:       t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
			Popularity:  t.Popularity,
			ID:          t.ID,
			URI:         t.URI,
		})
	}
	return summaries
}

// summarizePlaylists projects raw playlists into summaries.
func summarizePlaylists(playlists []spotify.SimplePlaylist) []PlaylistSummary {
	summaries := make([]PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		summaries = append(summaries, PlaylistSummary{
			Name:       p.Name,
			Owner:      p.Owner.DisplayName,
			TrackCount: p.Tracks.Total,
			Public:     p.Public,
			ID:         p.ID,
			URI:        p.URI,
		})
	}
	return summaries
}
