package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/services"
	"github.com/desertthunder/brandmix/internal/shared"
)

// TrackSearcher is the catalog proxy.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, token, query string, limit int) ([]models.Track, error)
}

// PlaylistProvider exposes the playlist and library endpoints of the provider.
type PlaylistProvider interface {
	AllPlaylists(ctx context.Context, token string) ([]services.SpotifyPlaylist, error)
	Playlist(ctx context.Context, token, playlistID string) (*services.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, token, playlistID string, uris []string) error
	ReplaceTracks(ctx context.Context, token, playlistID string, uris []string) error
	RemoveTracks(ctx context.Context, token, playlistID string, uris []string) error
	SavedAlbums(ctx context.Context, token string, limit, offset int) (*services.SpotifyPaginatedAlbums, error)
}

// TrackLister reads every track of a playlist, tolerating page failures.
type TrackLister interface {
	ListTracks(ctx context.Context, token, playlistID string) ([]models.Track, bool)
}

// CatalogHandler serves search, playlist and library routes.
type CatalogHandler struct {
	search    TrackSearcher
	playlists PlaylistProvider
	tracks    TrackLister
}

// NewCatalogHandler creates a [CatalogHandler].
func NewCatalogHandler(search TrackSearcher, playlists PlaylistProvider, tracks TrackLister) *CatalogHandler {
	return &CatalogHandler{search: search, playlists: playlists, tracks: tracks}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", shared.ErrInvalidInput, key)
	}
	return n, nil
}

// SearchTracks handles GET /search/tracks.
func (h *CatalogHandler) SearchTracks(w http.ResponseWriter, r *http.Request) {
	token, err := requireToken(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	tracks, err := h.search.SearchTracks(r.Context(), token, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// UserPlaylists handles GET /playlist/user.
func (h *CatalogHandler) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	token, err := requireToken(r, "")
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.playlists.AllPlaylists(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	playlists := make([]models.Playlist, 0, len(items))
	for _, p := range items {
		playlists = append(playlists, services.ToPlaylist(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

// Playlist handles GET /playlist/{id}.
func (h *CatalogHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	token, err := requireToken(r, "")
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.playlists.Playlist(r.Context(), token, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services.ToPlaylist(*p))
}

// PlaylistTracks handles GET /playlist/{id}/tracks. A listing cut short by provider failures
// is returned with complete set to false.
func (h *CatalogHandler) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	token, err := requireToken(r, "")
	if err != nil {
		writeError(w, err)
		return
	}

	tracks, complete := h.tracks.ListTracks(r.Context(), token, chi.URLParam(r, "id"))
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks, "complete": complete})
}

type urisRequest struct {
	URIs  []string `json:"uris"`
	Token string   `json:"token"`
}

// ModifyTracks handles POST, PUT and DELETE on /playlist/{id}/tracks.
func (h *CatalogHandler) ModifyTracks(w http.ResponseWriter, r *http.Request) {
	var req urisRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := requireToken(r, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	switch r.Method {
	case http.MethodPost:
		if len(req.URIs) == 0 {
			writeError(w, fmt.Errorf("%w: uris must not be empty", shared.ErrValidation))
			return
		}
		err = h.playlists.AddTracks(r.Context(), token, id, req.URIs)
	case http.MethodPut:
		err = h.playlists.ReplaceTracks(r.Context(), token, id, req.URIs)
	case http.MethodDelete:
		if len(req.URIs) == 0 {
			writeError(w, fmt.Errorf("%w: uris must not be empty", shared.ErrValidation))
			return
		}
		err = h.playlists.RemoveTracks(r.Context(), token, id, req.URIs)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlist_id": id, "count": len(req.URIs)})
}

// SavedAlbums handles GET /library/albums.
func (h *CatalogHandler) SavedAlbums(w http.ResponseWriter, r *http.Request) {
	token, err := requireToken(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.playlists.SavedAlbums(r.Context(), token, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	albums := make([]models.Album, 0, len(page.Items))
	for _, a := range page.Items {
		albums = append(albums, services.ToAlbum(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"albums": albums, "total": page.Total})
}
