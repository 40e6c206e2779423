package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/brandmix/internal/metrics"
	"github.com/desertthunder/brandmix/internal/services"
	"github.com/desertthunder/brandmix/internal/shared"
)

// RouterDeps collects everything [NewRouter] wires together.
type RouterDeps struct {
	Logger  *log.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics; nil leaves the route unmounted.
	MetricsHandler http.Handler

	APIPrefix      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimiter    *RateLimiter

	Tokens     TokenIssuer
	Search     TrackSearcher
	Playlists  PlaylistProvider
	Tracks     TrackLister
	Brands     BrandStore
	Suggester  Suggester
	Reconciler PlaylistReconciler
	Health     HealthReporter
}

// NewRouter builds the API router.
//
// Middleware order: RealIP → request id → recovery → logging → CORS → rate limit → timeout.
func NewRouter(deps *RouterDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = NewRateLimiter(0, 0)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(deps.Logger))
	r.Use(LoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(CORSMiddleware(deps.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Code: "not_found", Message: "no route for " + r.URL.Path, Category: "resource"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Code: "method_not_allowed", Message: r.Method + " is not allowed on " + r.URL.Path, Category: "input"})
	})

	api := func(r chi.Router) {
		authHandler := NewAuthHandler(deps.Tokens, deps.Logger)
		catalogHandler := NewCatalogHandler(deps.Search, deps.Playlists, deps.Tracks)
		brandHandler := NewBrandHandler(deps.Brands, deps.Suggester, deps.Reconciler, deps.Logger)

		r.Get("/health", NewHealthHandler(deps.Health).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.Middleware())
			r.Use(TimeoutMiddleware(deps.RequestTimeout))

			r.Route("/auth", func(r chi.Router) {
				r.Get("/login", authHandler.Login)
				r.Get("/callback", authHandler.Callback)
				r.Post("/validate", authHandler.Validate)
				r.Post("/refresh", authHandler.Refresh)
			})

			r.Get("/search/tracks", catalogHandler.SearchTracks)

			r.Route("/playlist", func(r chi.Router) {
				r.Get("/user", catalogHandler.UserPlaylists)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", catalogHandler.Playlist)
					r.Get("/tracks", catalogHandler.PlaylistTracks)
					r.Post("/tracks", catalogHandler.ModifyTracks)
					r.Put("/tracks", catalogHandler.ModifyTracks)
					r.Delete("/tracks", catalogHandler.ModifyTracks)
				})
			})

			r.Get("/library/albums", catalogHandler.SavedAlbums)

			r.Route("/brands", func(r chi.Router) {
				r.Get("/", brandHandler.List)
				r.Post("/", brandHandler.Create)
				r.Post("/suggest-music", brandHandler.SuggestMusic)
				r.Post("/create-playlist", brandHandler.CreatePlaylist)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", brandHandler.Get)
					r.Put("/", brandHandler.Update)
					r.Delete("/", brandHandler.Delete)
				})
			})
		})
	}

	if deps.APIPrefix != "" {
		r.Route(deps.APIPrefix, api)
	} else {
		api(r)
	}

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	return r
}

// HealthReporter produces the health document.
type HealthReporter interface {
	Health() services.HealthStatus
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	reporter HealthReporter
}

// NewHealthHandler creates a [HealthHandler].
func NewHealthHandler(reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		writeJSON(w, http.StatusOK, services.HealthStatus{Status: "ok"})
		return
	}
	writeJSON(w, http.StatusOK, h.reporter.Health())
}
