package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/brandmix/internal/auth"
	"github.com/desertthunder/brandmix/internal/shared"
)

// TokenIssuer runs the provider authorization flow.
type TokenIssuer interface {
	AuthorizationURL() (string, error)
	Exchange(ctx context.Context, code, state string) (*auth.TokenBundle, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenBundle, error)
	Validate(ctx context.Context, accessToken string) bool
}

// AuthHandler serves /auth/*.
type AuthHandler struct {
	tokens TokenIssuer
	logger *log.Logger
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(tokens TokenIssuer, logger *log.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

// Login returns a consent URL carrying a freshly issued state.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	url, err := h.tokens.AuthorizationURL()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

// Callback redeems the code the provider redirected back with.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Warn("authorization denied", "error", e)
		writeError(w, fmt.Errorf("%w: authorization denied: %s", shared.ErrValidation, e))
		return
	}

	bundle, err := h.tokens.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_info": bundle})
}

type validateRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenInfo    *struct {
		RefreshToken string `json:"refresh_token"`
	} `json:"token_info"`
}

func (v validateRequest) refreshToken() string {
	if v.RefreshToken != "" {
		return v.RefreshToken
	}
	if v.TokenInfo != nil {
		return v.TokenInfo.RefreshToken
	}
	return ""
}

type validateResponse struct {
	Valid     bool              `json:"valid"`
	TokenInfo *auth.TokenBundle `json:"token_info,omitempty"`
}

// Validate reports whether the caller's token is live. An invalid token with a usable
// refresh token is refreshed and the new bundle returned.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token := bearerToken(r)
	if token == "" {
		token = req.Token
	}
	if h.tokens.Validate(r.Context(), token) {
		writeJSON(w, http.StatusOK, validateResponse{Valid: true})
		return
	}

	rt := req.refreshToken()
	if rt == "" {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	bundle, err := h.tokens.Refresh(r.Context(), rt)
	if err != nil {
		h.logger.Info("refresh during validation failed", "error", err)
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, TokenInfo: bundle})
}

// Refresh trades a refresh token for a new bundle.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	bundle, err := h.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}
