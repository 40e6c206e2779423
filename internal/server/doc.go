// Package server exposes the brandmix HTTP API.
//
// # Routing
//
// [NewRouter] mounts every route on a chi router, optionally under an API prefix. Handlers
// depend on small consumer-side interfaces ([TokenIssuer], [TrackSearcher], [PlaylistProvider],
// [BrandStore], [Suggester], [PlaylistReconciler]) so tests can substitute fakes.
//
// # Errors
//
// Failures are written as {code, message, category}. The status is chosen from the sentinel
// errors in the shared package; see respond.go for the table.
//
// # Tokens
//
// Provider access tokens are never stored. Each request carries one as a Bearer header, or as a
// token query or body field for older clients.
//
// # Middleware
//
// Requests pass through RealIP, request id assignment, panic recovery, status-levelled logging
// with request metrics, CORS for configured origins, a per-client token bucket and a timeout.
package server
