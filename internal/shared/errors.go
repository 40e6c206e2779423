package shared

import (
	"fmt"
	"time"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// OAuth lifecycle errors
	ErrInvalidState       = fmt.Errorf("invalid or expired oauth state")
	ErrProviderExchange   = fmt.Errorf("authorization code exchange failed")
	ErrInvalidIssuedToken = fmt.Errorf("issued token failed liveness check")
	ErrRefreshFailed      = fmt.Errorf("token refresh failed")
	ErrUnauthorized       = fmt.Errorf("unauthorized")

	// Provider errors
	ErrAPIRequest           = fmt.Errorf("API request failed")
	ErrProviderRateLimited  = fmt.Errorf("provider rate limit exceeded")
	ErrProviderUnavailable  = fmt.Errorf("provider unavailable")
	ErrPlaylistCreateFailed = fmt.Errorf("playlist creation failed")
	ErrLLMProvider          = fmt.Errorf("language model provider error")

	// Resource errors
	ErrNotFound    = fmt.Errorf("not found")
	ErrBrandExists = fmt.Errorf("brand profile already exists")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// RetryAfterError wraps a provider error with the delay the provider asked callers to wait.
type RetryAfterError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%v: retry after %s", e.Err, e.RetryAfter)
	}
	return e.Err.Error()
}

func (e *RetryAfterError) Unwrap() error { return e.Err }
