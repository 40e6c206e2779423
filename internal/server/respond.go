package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/brandmix/internal/shared"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON envelope written for every failed request.
type ErrorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

type errorMapping struct {
	target   error
	status   int
	code     string
	category string
}

// Order matters: the first sentinel matched by [errors.Is] wins.
var errorMappings = []errorMapping{
	{shared.ErrInvalidState, http.StatusBadRequest, "invalid_state", "auth"},
	{shared.ErrValidation, http.StatusBadRequest, "validation_error", "input"},
	{shared.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "input"},
	{shared.ErrMissingArgument, http.StatusBadRequest, "missing_argument", "input"},
	{shared.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "auth"},
	{shared.ErrInvalidIssuedToken, http.StatusUnauthorized, "invalid_issued_token", "auth"},
	{shared.ErrRefreshFailed, http.StatusUnauthorized, "refresh_failed", "auth"},
	{shared.ErrProviderExchange, http.StatusUnauthorized, "exchange_failed", "auth"},
	{shared.ErrNotFound, http.StatusNotFound, "not_found", "resource"},
	{shared.ErrBrandExists, http.StatusConflict, "brand_exists", "resource"},
	{shared.ErrProviderRateLimited, http.StatusTooManyRequests, "rate_limited", "provider"},
	{shared.ErrProviderUnavailable, http.StatusInternalServerError, "provider_unavailable", "provider"},
	{shared.ErrPlaylistCreateFailed, http.StatusInternalServerError, "playlist_create_failed", "provider"},
	{shared.ErrLLMProvider, http.StatusInternalServerError, "llm_error", "provider"},
	{shared.ErrAPIRequest, http.StatusInternalServerError, "provider_error", "provider"},
}

// classify maps err to a status code and envelope.
func classify(err error) (int, ErrorBody) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, ErrorBody{Code: m.code, Message: err.Error(), Category: m.category}
		}
	}
	return http.StatusInternalServerError, ErrorBody{Code: "internal_error", Message: err.Error(), Category: "system"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err using the shared envelope. Rate limited provider errors carry Retry-After.
func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)

	var rae *shared.RetryAfterError
	if status == http.StatusTooManyRequests && errors.As(err, &rae) && rae.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rae.RetryAfter.Seconds()))))
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err)
	}
}

// bearerToken reads the caller's access token from the Authorization header,
// falling back to a token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// requireToken returns the bearer token, or fallback when the request carries none.
func requireToken(r *http.Request, fallback string) (string, error) {
	if t := bearerToken(r); t != "" {
		return t, nil
	}
	if t := strings.TrimSpace(fallback); t != "" {
		return t, nil
	}
	return "", shared.ErrUnauthorized
}
