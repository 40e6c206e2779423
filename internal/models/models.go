package models

import "strings"

// Track is the flattened representation of a provider track returned to clients.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	AlbumArt    string   `json:"album_art,omitempty"`
	DurationMs  int      `json:"duration_ms"`
	PreviewURL  string   `json:"preview_url,omitempty"`
	URI         string   `json:"uri"`
	ExternalURL string   `json:"external_url,omitempty"`
}

// Artist returns the primary (first) artist, or an empty string.
func (t Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistList joins all credited artists for display.
func (t Track) ArtistList() string {
	return strings.Join(t.Artists, ", ")
}

// Playlist is playlist metadata, optionally with its tracks.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Owner       string  `json:"owner,omitempty"`
	Public      bool    `json:"public"`
	TrackCount  int     `json:"track_count"`
	Image       string  `json:"image,omitempty"`
	URI         string  `json:"uri,omitempty"`
	ExternalURL string  `json:"external_url,omitempty"`
	Tracks      []Track `json:"tracks,omitempty"`
}

// Album is a saved album from the user's library.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	ReleaseDate string   `json:"release_date,omitempty"`
	TotalTracks int      `json:"total_tracks"`
	Image       string   `json:"image,omitempty"`
	URI         string   `json:"uri"`
	AddedAt     string   `json:"added_at,omitempty"`
}

// SongSuggestion is a single recommendation parsed from language model output.
type SongSuggestion struct {
	Track  string `json:"track"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// String renders the suggestion as "<track> by <artist>".
func (s SongSuggestion) String() string {
	return s.Track + " by " + s.Artist
}

// ReconcileResult summarizes a playlist reconciliation.
//
// TracksNotFound lists suggestions that could not be resolved, as "<track> by <artist>".
// Partial is set when the existing track listing could not be read completely.
type ReconcileResult struct {
	PlaylistID     string   `json:"playlist_id"`
	PlaylistName   string   `json:"playlist_name"`
	PlaylistURL    string   `json:"playlist_url"`
	Created        bool     `json:"created"`
	TracksAdded    int      `json:"tracks_added"`
	TracksKept     int      `json:"tracks_kept"`
	TracksDropped  int      `json:"tracks_dropped"`
	TracksNotFound []string `json:"tracks_not_found"`
	Partial        bool     `json:"partial,omitempty"`
}
