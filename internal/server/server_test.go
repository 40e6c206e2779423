package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/brandmix/internal/auth"
	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/recommend"
	"github.com/desertthunder/brandmix/internal/services"
	"github.com/desertthunder/brandmix/internal/shared"
	"github.com/desertthunder/brandmix/internal/tasks"
	tu "github.com/desertthunder/brandmix/internal/testing"
)

type fakeTokens struct {
	live       map[string]bool
	refreshErr error
	exchanged  []string
}

func (f *fakeTokens) AuthorizationURL() (string, error) {
	return "https://accounts.example/authorize?state=s1", nil
}

func (f *fakeTokens) Exchange(_ context.Context, code, state string) (*auth.TokenBundle, error) {
	if state != "s1" {
		return nil, shared.ErrInvalidState
	}
	if code == "bad" {
		return nil, fmt.Errorf("%w: invalid_grant", shared.ErrProviderExchange)
	}
	if code == "down" {
		return nil, fmt.Errorf("%w: dial tcp: connection refused", shared.ErrProviderUnavailable)
	}
	f.exchanged = append(f.exchanged, code)
	return &auth.TokenBundle{AccessToken: "at-" + code, RefreshToken: "rt", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (f *fakeTokens) Refresh(_ context.Context, rt string) (*auth.TokenBundle, error) {
	if rt == "" {
		return nil, shared.ErrValidation
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &auth.TokenBundle{AccessToken: "fresh", RefreshToken: rt, TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (f *fakeTokens) Validate(_ context.Context, token string) bool {
	return f.live[token]
}

type fakeSearch struct{ err error }

func (f *fakeSearch) SearchTracks(_ context.Context, token, query string, limit int) ([]models.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	if query == "" {
		return nil, shared.ErrValidation
	}
	return []models.Track{{ID: "t1", Name: query, URI: "spotify:track:t1"}}, nil
}

type fakePlaylists struct {
	calls []string
	err   error
}

func (f *fakePlaylists) AllPlaylists(context.Context, string) ([]services.SpotifyPlaylist, error) {
	return []services.SpotifyPlaylist{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}, f.err
}

func (f *fakePlaylists) Playlist(_ context.Context, _, id string) (*services.SpotifyPlaylist, error) {
	if id == "missing" {
		return nil, shared.ErrNotFound
	}
	return &services.SpotifyPlaylist{ID: id, Name: "Found"}, nil
}

func (f *fakePlaylists) AddTracks(_ context.Context, _, id string, uris []string) error {
	f.calls = append(f.calls, fmt.Sprintf("add %s %d", id, len(uris)))
	return f.err
}

func (f *fakePlaylists) ReplaceTracks(_ context.Context, _, id string, uris []string) error {
	f.calls = append(f.calls, fmt.Sprintf("replace %s %d", id, len(uris)))
	return f.err
}

func (f *fakePlaylists) RemoveTracks(_ context.Context, _, id string, uris []string) error {
	f.calls = append(f.calls, fmt.Sprintf("remove %s %d", id, len(uris)))
	return f.err
}

func (f *fakePlaylists) SavedAlbums(context.Context, string, int, int) (*services.SpotifyPaginatedAlbums, error) {
	return &services.SpotifyPaginatedAlbums{
		Items: []services.SpotifySavedAlbum{{AddedAt: "2024-01-01", Album: services.SpotifyAlbum{ID: "al", Name: "Album"}}},
		Total: 1,
	}, nil
}

type fakeTracks struct{}

func (fakeTracks) ListTracks(context.Context, string, string) ([]models.Track, bool) {
	return []models.Track{{ID: "a"}}, false
}

type fakeSuggester struct {
	got    *brands.Profile
	result *recommend.Result
	err    error
}

func (f *fakeSuggester) Suggest(_ context.Context, p *brands.Profile) (*recommend.Result, error) {
	f.got = p
	return f.result, f.err
}

type fakeReconciler struct {
	token string
	err   error
}

func (f *fakeReconciler) Reconcile(_ context.Context, token, brandID string, suggestions []models.SongSuggestion, progress chan<- tasks.ProgressUpdate) (*models.ReconcileResult, error) {
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	progress <- tasks.ProgressUpdate{Phase: tasks.Done, Message: "done"}
	return &models.ReconcileResult{PlaylistID: "pl", TracksAdded: len(suggestions), TracksNotFound: []string{}}, nil
}

type env struct {
	handler    http.Handler
	tokens     *fakeTokens
	playlists  *fakePlaylists
	store      *brands.FileStore
	suggester  *fakeSuggester
	reconciler *fakeReconciler
}

func newEnv(t *testing.T, mutate func(*RouterDeps)) *env {
	t.Helper()
	logger := shared.NewLogger(&bytes.Buffer{})
	e := &env{
		tokens:     &fakeTokens{live: map[string]bool{"good": true}},
		playlists:  &fakePlaylists{},
		store:      brands.NewFileStore(t.TempDir(), logger),
		suggester:  &fakeSuggester{result: &recommend.Result{Suggestions: []models.SongSuggestion{{Track: "A", Artist: "X"}}}},
		reconciler: &fakeReconciler{},
	}
	deps := &RouterDeps{
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
		Tokens:         e.tokens,
		Search:         &fakeSearch{},
		Playlists:      e.playlists,
		Tracks:         fakeTracks{},
		Brands:         e.store,
		Suggester:      e.suggester,
		Reconciler:     e.reconciler,
		Health:         &Health{Version: "test", Started: time.Now(), PendingStates: func() int { return 2 }},
	}
	if mutate != nil {
		mutate(deps)
	}
	e.handler = NewRouter(deps)
	return e
}

func (e *env) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	return tu.MustDecode[T](t, w.Body)
}

const bearer = "Bearer good"

func TestAuthRoutes(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodGet, "/auth/login", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := decode[map[string]string](t, w); !strings.Contains(body["auth_url"], "state=s1") {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("Callback", func(t *testing.T) {
		tests := []struct {
			name   string
			query  string
			status int
			code   string
		}{
			{"Success", "code=abc&state=s1", http.StatusOK, ""},
			{"Provider Error Param", "error=access_denied&state=s1", http.StatusBadRequest, "validation_error"},
			{"Unknown State", "code=abc&state=nope", http.StatusBadRequest, "invalid_state"},
			{"Bad Code", "code=bad&state=s1", http.StatusUnauthorized, "exchange_failed"},
			{"Token Endpoint Down", "code=down&state=s1", http.StatusInternalServerError, "provider_unavailable"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := newEnv(t, nil)
				w := e.do(t, http.MethodGet, "/auth/callback?"+tt.query, "")
				if w.Code != tt.status {
					t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body)
				}
				if tt.code != "" {
					if body := decode[ErrorBody](t, w); body.Code != tt.code {
						t.Errorf("expected code %s, got %+v", tt.code, body)
					}
					return
				}
				body := decode[struct {
					TokenInfo auth.TokenBundle `json:"token_info"`
				}](t, w)
				if body.TokenInfo.AccessToken != "at-abc" {
					t.Errorf("unexpected token info %+v", body.TokenInfo)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name      string
			header    string
			body      string
			valid     bool
			refreshed bool
		}{
			{"Live Token", bearer, "", true, false},
			{"Dead Token Without Refresh", "Bearer dead", "", false, false},
			{"Dead Token With Refresh", "Bearer dead", `{"refresh_token":"rt"}`, true, true},
			{"Dead Token With Token Info", "Bearer dead", `{"token_info":{"refresh_token":"rt"}}`, true, true},
			{"Token In Body", "", `{"token":"good"}`, true, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := newEnv(t, nil)
				w := e.do(t, http.MethodPost, "/auth/validate", tt.body, "Authorization", tt.header)
				if w.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", w.Code)
				}
				body := decode[validateResponse](t, w)
				if body.Valid != tt.valid {
					t.Errorf("expected valid=%v, got %v", tt.valid, body.Valid)
				}
				if (body.TokenInfo != nil) != tt.refreshed {
					t.Errorf("expected refreshed=%v, got %+v", tt.refreshed, body.TokenInfo)
				}
			})
		}

		t.Run("Refresh Rejected", func(t *testing.T) {
			e := newEnv(t, nil)
			e.tokens.refreshErr = shared.ErrRefreshFailed
			w := e.do(t, http.MethodPost, "/auth/validate", `{"refresh_token":"rt"}`, "Authorization", "Bearer dead")
			if body := decode[validateResponse](t, w); body.Valid || body.TokenInfo != nil {
				t.Errorf("expected invalid without token info, got %+v", body)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"rt"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := decode[auth.TokenBundle](t, w); body.AccessToken != "fresh" || body.RefreshToken != "rt" {
			t.Errorf("unexpected bundle %+v", body)
		}

		e.tokens.refreshErr = fmt.Errorf("%w: invalid_grant", shared.ErrRefreshFailed)
		if w := e.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"rt"}`); w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
		if w := e.do(t, http.MethodPost, "/auth/refresh", `{}`); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for missing refresh token, got %d", w.Code)
		}
		if w := e.do(t, http.MethodPost, "/auth/refresh", `{not json`); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for malformed body, got %d", w.Code)
		}
	})
}

func TestCatalogRoutes(t *testing.T) {
	t.Run("Search Requires Token", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodGet, "/search/tracks?q=x", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("Search", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodGet, "/search/tracks?q=dreams&limit=5", "", "Authorization", bearer)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decode[map[string][]models.Track](t, w)
		if len(body["tracks"]) != 1 || body["tracks"][0].Name != "dreams" {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("Search Token Query Fallback", func(t *testing.T) {
		e := newEnv(t, nil)
		if w := e.do(t, http.MethodGet, "/search/tracks?q=x&token=good", ""); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("Search Bad Limit", func(t *testing.T) {
		e := newEnv(t, nil)
		if w := e.do(t, http.MethodGet, "/search/tracks?q=x&limit=ten", "", "Authorization", bearer); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("Search Rate Limited Upstream", func(t *testing.T) {
		e := newEnv(t, func(d *RouterDeps) {
			d.Search = &fakeSearch{err: &shared.RetryAfterError{Err: shared.ErrProviderRateLimited, RetryAfter: 1500 * time.Millisecond}}
		})
		w := e.do(t, http.MethodGet, "/search/tracks?q=x", "", "Authorization", bearer)
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", w.Code)
		}
		if got := w.Header().Get("Retry-After"); got != "2" {
			t.Errorf("expected Retry-After 2, got %q", got)
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		e := newEnv(t, nil)

		w := e.do(t, http.MethodGet, "/playlist/user", "", "Authorization", bearer)
		if body := decode[map[string][]models.Playlist](t, w); len(body["playlists"]) != 2 {
			t.Errorf("unexpected playlists %+v", body)
		}

		w = e.do(t, http.MethodGet, "/playlist/p9", "", "Authorization", bearer)
		if body := decode[models.Playlist](t, w); body.ID != "p9" || body.ExternalURL != services.SpotifyPlaylistURL+"p9" {
			t.Errorf("unexpected playlist %+v", body)
		}

		if w := e.do(t, http.MethodGet, "/playlist/missing", "", "Authorization", bearer); w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}

		w = e.do(t, http.MethodGet, "/playlist/p1/tracks", "", "Authorization", bearer)
		body := decode[struct {
			Tracks   []models.Track `json:"tracks"`
			Complete bool           `json:"complete"`
		}](t, w)
		if len(body.Tracks) != 1 || body.Complete {
			t.Errorf("unexpected listing %+v", body)
		}
	})

	t.Run("Modify Tracks", func(t *testing.T) {
		e := newEnv(t, nil)
		uris := `{"uris":["spotify:track:a","spotify:track:b"]}`

		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			if w := e.do(t, method, "/playlist/p1/tracks", uris, "Authorization", bearer); w.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", method, w.Code)
			}
		}
		want := []string{"add p1 2", "replace p1 2", "remove p1 2"}
		if strings.Join(e.playlists.calls, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, e.playlists.calls)
		}

		if w := e.do(t, http.MethodPost, "/playlist/p1/tracks", `{"uris":[]}`, "Authorization", bearer); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for empty add, got %d", w.Code)
		}
		if w := e.do(t, http.MethodPut, "/playlist/p1/tracks", `{"uris":[],"token":"good"}`); w.Code != http.StatusOK {
			t.Errorf("expected empty replace with body token to clear, got %d", w.Code)
		}
	})

	t.Run("Saved Albums", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodGet, "/library/albums", "", "Authorization", bearer)
		body := decode[struct {
			Albums []models.Album `json:"albums"`
			Total  int            `json:"total"`
		}](t, w)
		if len(body.Albums) != 1 || body.Albums[0].ID != "al" || body.Total != 1 {
			t.Errorf("unexpected albums %+v", body)
		}
	})
}

const acme = `{"brand":"Acme Co","brand_essence":{"core_identity":"Playful"}}`

func TestBrandRoutes(t *testing.T) {
	t.Run("CRUD", func(t *testing.T) {
		e := newEnv(t, nil)

		w := e.do(t, http.MethodPost, "/brands", acme)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
		}
		if body := decode[map[string]string](t, w); body["brand_id"] != "acme_co" {
			t.Errorf("unexpected body %v", body)
		}

		if w := e.do(t, http.MethodPost, "/brands", acme); w.Code != http.StatusConflict {
			t.Errorf("expected 409 on duplicate, got %d", w.Code)
		}
		if w := e.do(t, http.MethodPost, "/brands", `{"tagline":"no name"}`); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without name, got %d", w.Code)
		}

		w = e.do(t, http.MethodGet, "/brands", "")
		list := decode[map[string][]brands.Summary](t, w)
		if len(list["brands"]) != 1 || list["brands"][0].Description != "Playful" {
			t.Errorf("unexpected list %+v", list)
		}

		w = e.do(t, http.MethodGet, "/brands/acme_co", "")
		if !strings.HasPrefix(strings.TrimSpace(w.Body.String()), `{"brand":"Acme Co"`) {
			t.Errorf("expected key order preserved, got %s", w.Body)
		}

		if w := e.do(t, http.MethodPut, "/brands/acme_co", `{"brand":"Acme Co","tagline":"new"}`); w.Code != http.StatusOK {
			t.Errorf("expected 200 on update, got %d", w.Code)
		}
		if w := e.do(t, http.MethodPut, "/brands/ghost", acme); w.Code != http.StatusNotFound {
			t.Errorf("expected 404 updating missing brand, got %d", w.Code)
		}
		if w := e.do(t, http.MethodDelete, "/brands/acme_co", ""); w.Code != http.StatusOK {
			t.Errorf("expected 200 on delete, got %d", w.Code)
		}
		if w := e.do(t, http.MethodDelete, "/brands/acme_co", ""); w.Code != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", w.Code)
		}
		if w := e.do(t, http.MethodGet, "/brands/..%2Fetc", ""); w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for invalid id, got %d", w.Code)
		}
	})

	t.Run("Suggest Music", func(t *testing.T) {
		e := newEnv(t, nil)

		w := e.do(t, http.MethodPost, "/brands/suggest-music", acme)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decode[map[string][]models.SongSuggestion](t, w)
		if len(body["suggestions"]) != 1 || e.suggester.got.Name() != "Acme Co" {
			t.Errorf("unexpected body %+v", body)
		}

		if _, err := e.store.Create(mustProfile(t, acme)); err != nil {
			t.Fatal(err)
		}
		e.suggester.got = nil
		if w := e.do(t, http.MethodPost, "/brands/suggest-music", `{"brand_id":"acme_co"}`); w.Code != http.StatusOK {
			t.Fatalf("expected 200 by id, got %d", w.Code)
		}
		if e.suggester.got == nil || e.suggester.got.Description() != "Playful" {
			t.Error("expected stored profile to be used")
		}

		if w := e.do(t, http.MethodPost, "/brands/suggest-music", `{"brand_id":"ghost"}`); w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown brand, got %d", w.Code)
		}
		if w := e.do(t, http.MethodPost, "/brands/suggest-music", `{}`); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for empty body, got %d", w.Code)
		}
	})

	t.Run("Suggest Music Failures", func(t *testing.T) {
		e := newEnv(t, nil)

		e.suggester.result = &recommend.Result{Suggestions: []models.SongSuggestion{}, Raw: "sorry"}
		w := e.do(t, http.MethodPost, "/brands/suggest-music", acme)
		if body := decode[map[string]any](t, w); body["raw_response"] != "sorry" {
			t.Errorf("expected raw response for empty parse, got %v", body)
		}

		e.suggester.err = fmt.Errorf("%w: overloaded", shared.ErrLLMProvider)
		w = e.do(t, http.MethodPost, "/brands/suggest-music", acme)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		if body := decode[ErrorBody](t, w); body.Code != "llm_error" || !strings.Contains(body.Message, "overloaded") {
			t.Errorf("unexpected error body %+v", body)
		}
	})

	t.Run("Create Playlist", func(t *testing.T) {
		e := newEnv(t, nil)
		req := `{"brand_id":"acme_co","suggestions":[{"track":"A","artist":"X"},{"track":"B","artist":"Y"}]}`

		w := e.do(t, http.MethodPost, "/brands/create-playlist", req, "Authorization", bearer)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
		}
		if body := decode[models.ReconcileResult](t, w); body.PlaylistID != "pl" || body.TracksAdded != 2 {
			t.Errorf("unexpected result %+v", body)
		}

		if w := e.do(t, http.MethodPost, "/brands/create-playlist", req); w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 without token, got %d", w.Code)
		}

		w = e.do(t, http.MethodPost, "/brands/create-playlist", `{"brand_id":"acme_co","token":"body-token","suggestions":[]}`)
		if w.Code != http.StatusOK || e.reconciler.token != "body-token" {
			t.Errorf("expected body token fallback, got %d with %q", w.Code, e.reconciler.token)
		}

		if w := e.do(t, http.MethodPost, "/brands/create-playlist", `{"suggestions":[]}`, "Authorization", bearer); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without brand_id, got %d", w.Code)
		}

		e.reconciler.err = fmt.Errorf("%w: quota", shared.ErrPlaylistCreateFailed)
		if w := e.do(t, http.MethodPost, "/brands/create-playlist", req, "Authorization", bearer); w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func mustProfile(t *testing.T, data string) *brands.Profile {
	t.Helper()
	p, err := brands.ParseProfile([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRouter(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodGet, "/health", "")
		body := decode[services.HealthStatus](t, w)
		if body.Status != "ok" || body.Version != "test" || body.PendingStates != 2 {
			t.Errorf("unexpected health %+v", body)
		}
	})

	t.Run("API Prefix", func(t *testing.T) {
		e := newEnv(t, func(d *RouterDeps) { d.APIPrefix = "/api" })
		if w := e.do(t, http.MethodGet, "/api/auth/login", ""); w.Code != http.StatusOK {
			t.Errorf("expected 200 under prefix, got %d", w.Code)
		}
		if w := e.do(t, http.MethodGet, "/auth/login", ""); w.Code != http.StatusNotFound {
			t.Errorf("expected 404 without prefix, got %d", w.Code)
		}
	})

	t.Run("Metrics Route", func(t *testing.T) {
		e := newEnv(t, func(d *RouterDeps) {
			d.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics")) })
		})
		if w := e.do(t, http.MethodGet, "/metrics", ""); w.Body.String() != "# metrics" {
			t.Errorf("unexpected metrics body %q", w.Body)
		}
	})

	t.Run("Not Found Envelope", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(t, http.MethodGet, "/nope", "")
		if body := decode[ErrorBody](t, w); w.Code != http.StatusNotFound || body.Code != "not_found" {
			t.Errorf("unexpected response %d %+v", w.Code, body)
		}
	})

	t.Run("CORS", func(t *testing.T) {
		e := newEnv(t, nil)

		w := e.do(t, http.MethodOptions, "/brands", "", "Origin", "http://localhost:3000", "Access-Control-Request-Method", "POST")
		if w.Code != http.StatusNoContent {
			t.Errorf("expected 204 preflight, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("expected origin echo, got %q", got)
		}

		w = e.do(t, http.MethodGet, "/health", "", "Origin", "http://evil.example")
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no CORS header for unknown origin, got %q", got)
		}
	})

	t.Run("Request ID", func(t *testing.T) {
		e := newEnv(t, nil)
		if w := e.do(t, http.MethodGet, "/health", ""); w.Header().Get(RequestIDHeader) == "" {
			t.Error("expected generated request id")
		}
		if w := e.do(t, http.MethodGet, "/health", "", RequestIDHeader, "abc"); w.Header().Get(RequestIDHeader) != "abc" {
			t.Error("expected request id to be echoed")
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		e := newEnv(t, func(d *RouterDeps) { d.RateLimiter = NewRateLimiter(1, 2) })

		codes := make([]int, 3)
		for i := range codes {
			codes[i] = e.do(t, http.MethodGet, "/auth/login", "").Code
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
			t.Errorf("unexpected status sequence %v", codes)
		}
		if w := e.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Errorf("expected health to bypass rate limit, got %d", w.Code)
		}
	})

	t.Run("Recovery", func(t *testing.T) {
		h := RecoveryMiddleware(shared.NewLogger(&bytes.Buffer{}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestRespond(t *testing.T) {
	t.Run("Classify", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
		}{
			{shared.ErrInvalidState, http.StatusBadRequest},
			{fmt.Errorf("%w: x", shared.ErrValidation), http.StatusBadRequest},
			{shared.ErrUnauthorized, http.StatusUnauthorized},
			{shared.ErrInvalidIssuedToken, http.StatusUnauthorized},
			{shared.ErrNotFound, http.StatusNotFound},
			{shared.ErrBrandExists, http.StatusConflict},
			{&shared.RetryAfterError{Err: shared.ErrProviderRateLimited}, http.StatusTooManyRequests},
			{shared.ErrProviderUnavailable, http.StatusInternalServerError},
			{errors.New("mystery"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			if status, _ := classify(tt.err); status != tt.status {
				t.Errorf("%v: expected %d, got %d", tt.err, tt.status, status)
			}
		}
	})

	t.Run("Bearer Token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?token=q", nil)
		if got := bearerToken(r); got != "q" {
			t.Errorf("expected query fallback, got %q", got)
		}
		r.Header.Set("Authorization", "bearer h")
		if got := bearerToken(r); got != "h" {
			t.Errorf("expected header token, got %q", got)
		}
	})

	t.Run("Health Uptime", func(t *testing.T) {
		start := time.Unix(1_700_000_000, 0)
		h := &Health{Started: start, now: func() time.Time { return start.Add(90 * time.Second) }}
		if got := h.Health(); got.UptimeSeconds != 90 || got.Status != "ok" {
			t.Errorf("unexpected health %+v", got)
		}
	})

	t.Run("Rate Limiter Cleanup", func(t *testing.T) {
		rl := NewRateLimiter(60, 1)
		now := time.Unix(0, 0)
		rl.now = func() time.Time { return now }
		rl.get("a")
		now = now.Add(time.Hour)
		rl.get("b")
		rl.Cleanup()
		if rl.Len() != 1 {
			t.Errorf("expected idle client to be dropped, got %d", rl.Len())
		}
	})
}
