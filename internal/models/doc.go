// Package models defines the data transfer objects shared by the brandmix services and HTTP handlers.
//
// The package contains three categories of types:
//
// 1. Catalog DTOs: flattened views of provider data
//   - [Track] : Song metadata with artists, album art and URIs
//   - [Playlist] : Playlist metadata with an optional track listing
//   - [Album] : Saved album metadata from the user's library
//
// 2. Recommendation DTOs
//   - [SongSuggestion] : A track/artist pair with the reason it fits a brand
//
// 3. Reconciliation results
//   - [ReconcileResult] : The outcome of writing suggestions into a brand playlist
//
// None of these types are persisted; the only durable data lives in brand profile files.
package models
