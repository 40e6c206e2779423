// Package auth implements the Spotify authorization-code flow for browser clients.
//
// [StateStore] issues single-use, time-limited OAuth state values held only in memory.
// [TokenService] builds authorization URLs, exchanges codes, refreshes tokens and checks token liveness.
// Issued tokens are returned to the caller as a [TokenBundle] and never stored server-side.
package auth
