// Package tasks writes brand song suggestions into a Spotify playlist with real-time progress reporting.
//
// # Reconciliation
//
// [Reconciler.Reconcile] runs one request through a small state machine:
//
//  1. Resolving : each suggestion becomes a single-result catalog search; misses are reported, never fatal
//  2. Locating : the user's playlists are paged until one matches "<Brand> Brand Playlist", ignoring case
//  3. Found or NotFound
//  4. Reconciling
//     - Found with N > 0 tracks: floor(N/2) tracks are kept at random and the playlist is replaced
//     in one call by the kept tracks, in their original order, followed by new tracks filling the remaining slots
//     - Found but empty, listed only partially, or NotFound: the playlist is created when absent and
//     every resolved track is appended
//  5. Done
//
// The playlist size never changes when it already had tracks; surplus suggestions are dropped.
//
// # Pagination
//
// [Reconciler.ListTracks] retries each page a fixed number of times with a fixed delay.
// When retries run out it returns the tracks gathered so far and reports the listing as incomplete.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default so a slow or absent reader never blocks a reconciliation.
package tasks
