// Package services implements the outbound HTTP clients used by brandmix.
//
// # Spotify Client
//
// [SpotifyService] is a per-call-token client for the Spotify Web API. It never stores credentials:
// the caller's access token travels with every call, so a single instance serves every user.
//
// # Catalog Proxy
//
// [CatalogService] validates the caller's token and flattens provider search results into [models.Track].
//
// # API Client
//
// [APIService] talks to a running brandmix server; the CLI uses it for status and login.
//
// # Error Handling
//
// Provider responses are mapped onto the shared sentinel errors:
//   - [shared.ErrUnauthorized] : 401, the token was rejected
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrProviderRateLimited] : 429, wrapped in [shared.RetryAfterError]
//   - [shared.ErrProviderUnavailable] : transport failure
//   - [shared.ErrAPIRequest] : any other non-2xx status
package services
