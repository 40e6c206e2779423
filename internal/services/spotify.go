// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/brandmix/internal/metrics"
	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/shared"
)

const (
	// SpotifyBaseURL is the production Web API root.
	SpotifyBaseURL = "https://api.spotify.com/v1"
	// SpotifyPlaylistURL prefixes a playlist id to build its public web link.
	SpotifyPlaylistURL = "https://open.spotify.com/playlist/"

	providerName = "spotify"
	maxBatchSize = 100
)

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   int             `json:"popularity"`
	PreviewURL   string          `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object as returned by list and detail endpoints.
type SpotifyPlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Owner        Owner             `json:"owner"`
	Public       bool              `json:"public"`
	Tracks       playlistTracksRef `json:"tracks"`
	Images       []SpotifyImage    `json:"images"`
	ExternalURLs externalURLs      `json:"external_urls"`
	URI          string            `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for items the provider can no longer serve.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// SpotifyPage is the provider's offset pagination envelope.
type SpotifyPage[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether the provider advertised another page.
func (p *SpotifyPage[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists = SpotifyPage[SpotifyPlaylist]

// SpotifyPaginatedPlaylistTracks represents a paginated response of playlist items.
type SpotifyPaginatedPlaylistTracks = SpotifyPage[SpotifyPlaylistTrack]

// SpotifyPaginatedAlbums represents a paginated response of saved albums.
type SpotifyPaginatedAlbums = SpotifyPage[SpotifySavedAlbum]

// SpotifySearchResult is the track portion of a search response.
type SpotifySearchResult struct {
	Tracks SpotifyPage[SpotifyTrack] `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService is a Spotify Web API client.
//
// It holds no credentials: every call takes the caller's access token, so one instance serves all users.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.Recorder
}

// NewSpotifyService creates a client against baseURL (defaults to [SpotifyBaseURL]).
func NewSpotifyService(baseURL string, client *http.Client, rec metrics.Recorder) *SpotifyService {
	if baseURL == "" {
		baseURL = SpotifyBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SpotifyService{baseURL: baseURL, httpClient: client, metrics: rec}
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// op is a low-cardinality label for metrics; endpoint is the path and query below the base URL.
func (s *SpotifyService) doRequest(ctx context.Context, token, op, method, endpoint string, body, result any) error {
	if token == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrUnauthorized)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.metrics.RecordProviderCall(providerName, op, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	s.metrics.RecordProviderCall(providerName, op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrProviderUnavailable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	return nil
}

// statusError maps a non-2xx provider response onto the shared error taxonomy.
func statusError(resp *http.Response) error {
	var body spotifyErrorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)

	msg := body.Error.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		return &shared.RetryAfterError{Err: fmt.Errorf("%w: %s", shared.ErrProviderRateLimited, msg), RetryAfter: wait}
	default:
		return fmt.Errorf("%w: spotify status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// CurrentUser retrieves the profile that owns token.
func (s *SpotifyService) CurrentUser(ctx context.Context, token string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, "me", http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckToken performs a liveness check on token. A nil error means the provider accepted it.
func (s *SpotifyService) CheckToken(ctx context.Context, token string) error {
	_, err := s.CurrentUser(ctx, token)
	return err
}

// Search runs a track search.
func (s *SpotifyService) Search(ctx context.Context, token, query string, limit int) (*SpotifySearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(clampLimit(limit, 20, 50)))

	var result SpotifySearchResult
	if err := s.doRequest(ctx, token, "search", http.MethodGet, "/search?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, token string, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", clampLimit(limit, 20, 50), offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, token, "playlists", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// AllPlaylists pages through every playlist the user owns or follows.
func (s *SpotifyService) AllPlaylists(ctx context.Context, token string) ([]SpotifyPlaylist, error) {
	var all []SpotifyPlaylist
	limit := 50
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, token, limit, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, response.Items...)

		if !response.HasNext() || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return all, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, token, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := "/playlists/" + url.PathEscape(playlistID)

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, token, "playlist", http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistTracks retrieves one page of a playlist's items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, token, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d",
		url.PathEscape(playlistID), clampLimit(limit, 100, 100), offset)

	var response SpotifyPaginatedPlaylistTracks
	if err := s.doRequest(ctx, token, "playlist_tracks", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// CreatePlaylist creates a playlist owned by the token's user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token, name, description string, public bool) (*SpotifyPlaylist, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}
	endpoint := "/users/" + url.PathEscape(user.ID) + "/playlists"

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, token, "create_playlist", http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		return nil, fmt.Errorf("%w: provider returned no playlist id", shared.ErrAPIRequest)
	}
	return &playlist, nil
}

// AddTracks appends uris to a playlist in batches of 100.
func (s *SpotifyService) AddTracks(ctx context.Context, token, playlistID string, uris []string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for _, batch := range chunk(uris, maxBatchSize) {
		body := map[string]any{"uris": batch}
		if err := s.doRequest(ctx, token, "add_tracks", http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceTracks sets the playlist's items to uris. An empty list clears the playlist.
func (s *SpotifyService) ReplaceTracks(ctx context.Context, token, playlistID string, uris []string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"

	first := uris
	if len(first) > maxBatchSize {
		first = uris[:maxBatchSize]
	}
	body := map[string]any{"uris": nonNil(first)}
	if err := s.doRequest(ctx, token, "replace_tracks", http.MethodPut, endpoint, body, nil); err != nil {
		return err
	}

	if len(uris) > maxBatchSize {
		return s.AddTracks(ctx, token, playlistID, uris[maxBatchSize:])
	}
	return nil
}

// RemoveTracks removes every occurrence of uris from a playlist.
func (s *SpotifyService) RemoveTracks(ctx context.Context, token, playlistID string, uris []string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for _, batch := range chunk(uris, maxBatchSize) {
		items := make([]map[string]string, 0, len(batch))
		for _, uri := range batch {
			items = append(items, map[string]string{"uri": uri})
		}
		body := map[string]any{"tracks": items}
		if err := s.doRequest(ctx, token, "remove_tracks", http.MethodDelete, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// SavedAlbums retrieves a page of the user's saved albums.
func (s *SpotifyService) SavedAlbums(ctx context.Context, token string, limit, offset int) (*SpotifyPaginatedAlbums, error) {
	endpoint := fmt.Sprintf("/me/albums?limit=%d&offset=%d", clampLimit(limit, 20, 50), offset)

	var response SpotifyPaginatedAlbums
	if err := s.doRequest(ctx, token, "saved_albums", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ToTrack flattens a provider track. The largest album image is used as album art.
func ToTrack(st SpotifyTrack) models.Track {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, a.Name)
	}

	track := models.Track{
		ID:          st.ID,
		Name:        st.Name,
		Artists:     artists,
		Album:       st.Album.Name,
		DurationMs:  st.DurationMS,
		PreviewURL:  st.PreviewURL,
		URI:         st.URI,
		ExternalURL: st.ExternalURLs.Spotify,
	}
	if len(st.Album.Images) > 0 {
		track.AlbumArt = st.Album.Images[0].URL
	}
	return track
}

// ToPlaylist flattens a provider playlist.
func ToPlaylist(sp SpotifyPlaylist) models.Playlist {
	p := models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Owner:       sp.Owner.DisplayName,
		Public:      sp.Public,
		TrackCount:  sp.Tracks.Total,
		URI:         sp.URI,
		ExternalURL: sp.ExternalURLs.Spotify,
	}
	if p.ExternalURL == "" && sp.ID != "" {
		p.ExternalURL = SpotifyPlaylistURL + sp.ID
	}
	if len(sp.Images) > 0 {
		p.Image = sp.Images[0].URL
	}
	return p
}

// ToAlbum flattens a saved album.
func ToAlbum(sa SpotifySavedAlbum) models.Album {
	artists := make([]string, 0, len(sa.Album.Artists))
	for _, a := range sa.Album.Artists {
		artists = append(artists, a.Name)
	}

	album := models.Album{
		ID:          sa.Album.ID,
		Name:        sa.Album.Name,
		Artists:     artists,
		ReleaseDate: sa.Album.ReleaseDate,
		TotalTracks: sa.Album.TotalTracks,
		URI:         sa.Album.URI,
		AddedAt:     sa.AddedAt,
	}
	if len(sa.Album.Images) > 0 {
		album.Image = sa.Album.Images[0].URL
	}
	return album
}

// IsUnauthorized reports whether err means the access token was rejected.
func IsUnauthorized(err error) bool {
	return errors.Is(err, shared.ErrUnauthorized)
}
