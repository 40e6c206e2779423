package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/metrics"
	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/services"
	"github.com/desertthunder/brandmix/internal/shared"
)

// PlaylistClient is the subset of [services.SpotifyService] the reconciler drives.
type PlaylistClient interface {
	UserPlaylists(ctx context.Context, token string, limit, offset int) (*services.SpotifyPaginatedPlaylists, error)
	PlaylistTracks(ctx context.Context, token, playlistID string, limit, offset int) (*services.SpotifyPaginatedPlaylistTracks, error)
	Search(ctx context.Context, token, query string, limit int) (*services.SpotifySearchResult, error)
	CreatePlaylist(ctx context.Context, token, name, description string, public bool) (*services.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, token, playlistID string, uris []string) error
	ReplaceTracks(ctx context.Context, token, playlistID string, uris []string) error
}

// BrandLookup loads brand profiles by id.
type BrandLookup interface {
	Get(id string) (*brands.Profile, error)
}

// Config tunes pagination, retries and the outbound search rate.
type Config struct {
	PageSize          int
	TrackPageSize     int
	MaxRetries        int
	RetryDelay        time.Duration
	SearchesPerSecond float64
}

// DefaultConfig mirrors the shipped configuration file.
func DefaultConfig() Config {
	return Config{
		PageSize:          50,
		TrackPageSize:     100,
		MaxRetries:        3,
		RetryDelay:        100 * time.Millisecond,
		SearchesPerSecond: 5,
	}
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c shared.ReconcileConfig) Config {
	return Config{
		PageSize:          c.PageSize,
		TrackPageSize:     c.TrackPageSize,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        c.RetryDelay(),
		SearchesPerSecond: c.SearchesPerSecond,
	}
}

// Reconciler writes resolved suggestions into a brand's playlist.
type Reconciler struct {
	client  PlaylistClient
	brands  BrandLookup
	cfg     Config
	limiter *rate.Limiter
	perm    func(n int) []int
	logger  *log.Logger
	metrics metrics.Recorder
}

// NewReconciler creates a Reconciler. Zero config values fall back to [DefaultConfig].
func NewReconciler(client PlaylistClient, lookup BrandLookup, cfg Config, logger *log.Logger, rec metrics.Recorder) *Reconciler {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.TrackPageSize <= 0 {
		cfg.TrackPageSize = def.TrackPageSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SearchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SearchesPerSecond), 1)
	}

	return &Reconciler{
		client:  client,
		brands:  lookup,
		cfg:     cfg,
		limiter: limiter,
		perm:    rand.Perm,
		logger:  logger,
		metrics: rec,
	}
}

// PlaylistName derives the playlist name for a brand.
func PlaylistName(brand string) string {
	return brand + " Brand Playlist"
}

func playlistDescription(brand string) string {
	return fmt.Sprintf("A curated playlist capturing %s's aesthetic and values", brand)
}

// sendProgress sends a progress update through the channel without blocking.
func (r *Reconciler) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Locate pages through the user's playlists and returns the first whose name matches, ignoring case.
// It returns nil without error when no playlist matches.
func (r *Reconciler) Locate(ctx context.Context, token, name string) (*services.SpotifyPlaylist, error) {
	want := strings.TrimSpace(name)
	offset := 0

	for {
		page, err := r.client.UserPlaylists(ctx, token, r.cfg.PageSize, offset)
		if err != nil {
			return nil, err
		}

		for i := range page.Items {
			if strings.EqualFold(strings.TrimSpace(page.Items[i].Name), want) {
				return &page.Items[i], nil
			}
		}

		if !page.HasNext() || len(page.Items) == 0 {
			return nil, nil
		}
		offset += len(page.Items)
	}
}

// ListTracks returns every playable track of a playlist, in order.
//
// Each page is attempted up to MaxRetries times with RetryDelay between attempts. When a page still fails,
// the tracks gathered so far are returned with complete set to false. Unavailable items are skipped.
func (r *Reconciler) ListTracks(ctx context.Context, token, playlistID string) ([]models.Track, bool) {
	var tracks []models.Track
	offset := 0

	for {
		page, err := r.fetchTracksPage(ctx, token, playlistID, offset)
		if err != nil {
			r.logger.Warn("giving up on playlist tracks", "playlist", playlistID, "offset", offset, "error", err)
			return tracks, false
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.URI == "" {
				continue
			}
			tracks = append(tracks, services.ToTrack(*item.Track))
		}

		if !page.HasNext() || len(page.Items) == 0 {
			return tracks, true
		}
		offset += len(page.Items)
	}
}

func (r *Reconciler) fetchTracksPage(ctx context.Context, token, playlistID string, offset int) (*services.SpotifyPaginatedPlaylistTracks, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		page, err := r.client.PlaylistTracks(ctx, token, playlistID, r.cfg.TrackPageSize, offset)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if errors.Is(err, shared.ErrUnauthorized) {
			return nil, err
		}
		r.logger.Debug("playlist tracks page failed", "attempt", attempt, "offset", offset, "error", err)

		if attempt < r.cfg.MaxRetries {
			if err := sleep(ctx, r.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolve searches for each suggestion and returns the matched track URIs plus "<track> by <artist>"
// descriptions of the suggestions that could not be matched.
//
// Repeated suggestions are searched once and repeated URIs are collapsed. Only context cancellation is fatal.
func (r *Reconciler) Resolve(ctx context.Context, token string, suggestions []models.SongSuggestion, progress chan<- ProgressUpdate) ([]string, []string, error) {
	uris := []string{}
	notFound := []string{}
	seenKeys := make(map[string]bool, len(suggestions))
	seenURIs := make(map[string]bool, len(suggestions))

	for i, s := range suggestions {
		key := shared.NormalizeTrackKey(s.Track, s.Artist)
		if seenKeys[key] {
			continue
		}
		seenKeys[key] = true

		r.sendProgress(progress, resolvingUpdate(i+1, len(suggestions), s))

		if strings.TrimSpace(s.Track) == "" || strings.TrimSpace(s.Artist) == "" {
			notFound = append(notFound, s.String())
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		query := fmt.Sprintf("track:%s artist:%s", s.Track, s.Artist)
		result, err := r.client.Search(ctx, token, query, 1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			r.logger.Warn("search failed", "track", s.Track, "artist", s.Artist, "error", err)
			notFound = append(notFound, s.String())
			continue
		}
		if len(result.Tracks.Items) == 0 || result.Tracks.Items[0].URI == "" {
			r.logger.Info("no match", "track", s.Track, "artist", s.Artist)
			notFound = append(notFound, s.String())
			continue
		}

		uri := result.Tracks.Items[0].URI
		if !seenURIs[uri] {
			seenURIs[uri] = true
			uris = append(uris, uri)
		}
	}

	return uris, notFound, nil
}

// Reconcile writes suggestions into the brand's playlist, creating it when needed.
func (r *Reconciler) Reconcile(ctx context.Context, token, brandID string, suggestions []models.SongSuggestion, progress chan<- ProgressUpdate) (*models.ReconcileResult, error) {
	result, err := r.reconcile(ctx, token, brandID, suggestions, progress)
	if err != nil {
		r.metrics.RecordReconcile("failed")
		return nil, err
	}

	if result.Created {
		r.metrics.RecordReconcile("created")
	} else {
		r.metrics.RecordReconcile("updated")
	}
	r.sendProgress(progress, doneUpdate(result))
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, token, brandID string, suggestions []models.SongSuggestion, progress chan<- ProgressUpdate) (*models.ReconcileResult, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrUnauthorized)
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: at least one suggestion is required", shared.ErrValidation)
	}

	profile, err := r.brands.Get(brandID)
	if err != nil {
		return nil, err
	}
	brand := profile.Name()
	if brand == "" {
		brand = brandID
	}
	name := PlaylistName(brand)
	logger := r.logger.With("brand", brandID, "playlist", name)

	uris, notFound, err := r.Resolve(ctx, token, suggestions, progress)
	if err != nil {
		return nil, err
	}

	r.sendProgress(progress, locatingUpdate(name))
	existing, err := r.Locate(ctx, token, name)
	if err != nil {
		return nil, err
	}

	result := &models.ReconcileResult{
		PlaylistName:   name,
		TracksNotFound: notFound,
	}

	if existing == nil {
		r.sendProgress(progress, notFoundUpdate(name))

		created, err := r.client.CreatePlaylist(ctx, token, name, playlistDescription(brand), false)
		if err != nil {
			logger.Error("playlist creation failed", "error", err)
			return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistCreateFailed, err)
		}
		result.PlaylistID = created.ID
		result.Created = true

		r.sendProgress(progress, reconcilingUpdate(0, 0, len(uris)))
		if err := r.client.AddTracks(ctx, token, created.ID, uris); err != nil {
			return nil, err
		}
		result.TracksAdded = len(uris)
		result.PlaylistURL = services.SpotifyPlaylistURL + result.PlaylistID
		logger.Info("playlist created", "id", created.ID, "added", result.TracksAdded)
		return result, nil
	}

	result.PlaylistID = existing.ID
	result.PlaylistURL = services.SpotifyPlaylistURL + existing.ID
	r.sendProgress(progress, foundUpdate(existing.ID, existing.Name))

	current, complete := r.ListTracks(ctx, token, existing.ID)
	result.Partial = !complete
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// An incomplete listing is treated as empty: nothing is cleared and every resolved track is appended.
	n := len(current)
	if n == 0 || !complete {
		r.sendProgress(progress, reconcilingUpdate(0, 0, len(uris)))
		if err := r.client.AddTracks(ctx, token, existing.ID, uris); err != nil {
			return nil, err
		}
		result.TracksAdded = len(uris)
		logger.Info("playlist appended", "id", existing.ID, "added", result.TracksAdded, "partial", result.Partial)
		return result, nil
	}

	kept := r.pickKept(current)
	slots := n - len(kept)
	added := uris[:min(slots, len(uris))]

	r.sendProgress(progress, reconcilingUpdate(n, len(kept), len(added)))

	// Kept tracks first, in their original order.
	next := make([]string, 0, len(kept)+len(added))
	next = append(next, kept...)
	next = append(next, added...)
	if err := r.client.ReplaceTracks(ctx, token, existing.ID, next); err != nil {
		return nil, err
	}

	result.TracksKept = len(kept)
	result.TracksAdded = len(added)
	result.TracksDropped = len(uris) - len(added)
	logger.Info("playlist reconciled", "id", existing.ID, "existing", n, "kept", result.TracksKept, "added", result.TracksAdded, "partial", result.Partial)
	return result, nil
}

// pickKept selects floor(n/2) tracks uniformly at random without replacement and returns their URIs
// in playlist order.
func (r *Reconciler) pickKept(tracks []models.Track) []string {
	keep := len(tracks) / 2
	idx := r.perm(len(tracks))[:keep]
	slices.Sort(idx)

	uris := make([]string, 0, keep)
	for _, i := range idx {
		uris = append(uris, tracks[i].URI)
	}
	return uris
}
