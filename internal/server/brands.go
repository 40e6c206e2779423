package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/recommend"
	"github.com/desertthunder/brandmix/internal/shared"
	"github.com/desertthunder/brandmix/internal/tasks"
)

// BrandStore persists brand profiles.
type BrandStore interface {
	List() ([]brands.Summary, error)
	Get(id string) (*brands.Profile, error)
	Create(p *brands.Profile) (string, error)
	Update(id string, p *brands.Profile) error
	Delete(id string) error
}

// Suggester produces song suggestions for a brand.
type Suggester interface {
	Suggest(ctx context.Context, profile *brands.Profile) (*recommend.Result, error)
}

// PlaylistReconciler builds or refreshes a brand playlist from suggestions.
type PlaylistReconciler interface {
	Reconcile(ctx context.Context, token, brandID string, suggestions []models.SongSuggestion, progress chan<- tasks.ProgressUpdate) (*models.ReconcileResult, error)
}

// BrandHandler serves /brands/*.
type BrandHandler struct {
	store      BrandStore
	suggester  Suggester
	reconciler PlaylistReconciler
	logger     *log.Logger
}

// NewBrandHandler creates a [BrandHandler].
func NewBrandHandler(store BrandStore, suggester Suggester, reconciler PlaylistReconciler, logger *log.Logger) *BrandHandler {
	return &BrandHandler{store: store, suggester: suggester, reconciler: reconciler, logger: logger}
}

func readProfile(r *http.Request) (*brands.Profile, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return brands.ParseProfile(data)
}

// List handles GET /brands.
func (h *BrandHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": summaries})
}

// Get handles GET /brands/{id}.
func (h *BrandHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /brands.
func (h *BrandHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := readProfile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.store.Create(p)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("brand profile created", "id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "brand profile created", "brand_id": id})
}

// Update handles PUT /brands/{id}.
func (h *BrandHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := readProfile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.Update(id, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "brand profile updated", "brand_id": id})
}

// Delete handles DELETE /brands/{id}.
func (h *BrandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "brand profile deleted", "brand_id": id})
}

// SuggestMusic handles POST /brands/suggest-music. The body is either a full profile
// or {"brand_id": "..."} naming a stored one.
func (h *BrandHandler) SuggestMusic(w http.ResponseWriter, r *http.Request) {
	p, err := readProfile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if p.Name() == "" {
		id := strings.TrimSpace(p.Attributes().String("brand_id"))
		if id == "" {
			writeError(w, fmt.Errorf("%w: a brand profile or brand_id is required", shared.ErrValidation))
			return
		}
		if p, err = h.store.Get(id); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := h.suggester.Suggest(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]any{"suggestions": result.Suggestions}
	if len(result.Suggestions) == 0 {
		body["raw_response"] = result.Raw
	}
	writeJSON(w, http.StatusOK, body)
}

type createPlaylistRequest struct {
	BrandID     string                  `json:"brand_id"`
	Suggestions []models.SongSuggestion `json:"suggestions"`
	Token       string                  `json:"token"`
}

// CreatePlaylist handles POST /brands/create-playlist.
func (h *BrandHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := requireToken(r, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.BrandID) == "" {
		writeError(w, fmt.Errorf("%w: brand_id is required", shared.ErrValidation))
		return
	}

	logger := shared.WithLogger(h.logger, "brand", req.BrandID, "request_id", RequestID(r.Context()))
	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, err := h.reconciler.Reconcile(r.Context(), token, req.BrandID, req.Suggestions, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
