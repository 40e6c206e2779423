package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/brandmix/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes is the permission set requested at login.
var Scopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-private",
	"user-read-email",
	"user-follow-read",
	"user-library-read",
	"user-library-modify",
	"user-follow-modify",
	"user-read-playback-state",
	"user-modify-playback-state",
	"streaming",
	"user-top-read",
}

// LivenessChecker verifies that an access token is accepted by the provider.
type LivenessChecker interface {
	CheckToken(ctx context.Context, accessToken string) error
}

// TokenBundle is the token material handed back to clients.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	Scope        string `json:"scope,omitempty"`
}

// TokenService runs the authorization-code flow against Spotify.
type TokenService struct {
	config     *oauth2.Config
	states     *StateStore
	checker    LivenessChecker
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// NewTokenService builds a service from Spotify credentials.
//
// httpClient is used for token endpoint calls; nil selects the oauth2 default.
func NewTokenService(cfg shared.SpotifyConfig, states *StateStore, checker LivenessChecker, httpClient *http.Client, logger *log.Logger) *TokenService {
	authURL, tokenURL := spotifyAuthURL, spotifyTokenURL
	if cfg.AuthURL != "" {
		authURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		tokenURL = cfg.TokenURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &TokenService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		states:     states,
		checker:    checker,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// States exposes the underlying state store.
func (s *TokenService) States() *StateStore {
	return s.states
}

// AuthorizationURL issues a state and returns the provider's consent URL carrying it.
func (s *TokenService) AuthorizationURL() (string, error) {
	state, err := s.states.Issue()
	if err != nil {
		return "", err
	}
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange redeems an authorization code.
//
// The state is consumed before anything else, so it cannot be replayed even when the exchange fails.
func (s *TokenService) Exchange(ctx context.Context, code, state string) (*TokenBundle, error) {
	if !s.states.Consume(state) {
		return nil, shared.ErrInvalidState
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: authorization code is required", shared.ErrValidation)
	}

	issuedAt := s.now()
	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		s.logger.Warn("code exchange failed", "error", err)
		return nil, classify(err, shared.ErrProviderExchange)
	}

	if err := s.checker.CheckToken(ctx, token.AccessToken); err != nil {
		s.logger.Warn("issued token failed liveness check", "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidIssuedToken, err)
	}

	return s.bundle(token, issuedAt, ""), nil
}

// Refresh trades a refresh token for a new access token.
//
// When the provider does not rotate the refresh token the old one is carried forward.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", shared.ErrValidation)
	}

	issuedAt := s.now()
	token, err := s.config.TokenSource(s.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		s.logger.Warn("refresh failed", "error", err)
		return nil, classify(err, shared.ErrRefreshFailed)
	}

	if err := s.checker.CheckToken(ctx, token.AccessToken); err != nil {
		return nil, fmt.Errorf("%w: refreshed token failed liveness check: %v", shared.ErrRefreshFailed, err)
	}

	return s.bundle(token, issuedAt, refreshToken), nil
}

// Validate reports whether accessToken is currently accepted by the provider.
func (s *TokenService) Validate(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}
	return s.checker.CheckToken(ctx, accessToken) == nil
}

func (s *TokenService) withClient(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *TokenService) bundle(token *oauth2.Token, issuedAt time.Time, previousRefresh string) *TokenBundle {
	expiresIn := token.ExpiresIn
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = int64(token.Expiry.Sub(issuedAt).Round(time.Second) / time.Second)
	}

	b := &TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    expiresIn,
		ExpiresAt:    issuedAt.Unix() + expiresIn,
	}
	if b.RefreshToken == "" {
		b.RefreshToken = previousRefresh
	}
	if b.TokenType == "" {
		b.TokenType = "Bearer"
	}
	if scope, ok := token.Extra("scope").(string); ok {
		b.Scope = scope
	}
	return b
}

// classify wraps a token endpoint answer in rejected and anything else, such as a transport failure,
// in [shared.ErrProviderUnavailable].
func classify(err, rejected error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %s", rejected, describe(err))
	}
	return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
}

// describe extracts the provider's error code from an oauth2 failure when present.
func describe(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode != "" {
			if re.ErrorDescription != "" {
				return re.ErrorCode + ": " + re.ErrorDescription
			}
			return re.ErrorCode
		}
		if re.Response != nil {
			return fmt.Sprintf("token endpoint returned %d", re.Response.StatusCode)
		}
	}
	return err.Error()
}
