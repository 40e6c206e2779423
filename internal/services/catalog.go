package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/shared"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// CatalogClient is the subset of [SpotifyService] the catalog proxy needs.
type CatalogClient interface {
	CheckToken(ctx context.Context, token string) error
	Search(ctx context.Context, token, query string, limit int) (*SpotifySearchResult, error)
}

// CatalogService proxies track search on behalf of a signed-in user.
type CatalogService struct {
	client CatalogClient
}

func NewCatalogService(client CatalogClient) *CatalogService {
	return &CatalogService{client: client}
}

// SearchTracks validates token, then searches for query and returns flattened tracks.
//
// limit is clamped to 1..50; zero or negative selects the default of 20.
func (c *CatalogService) SearchTracks(ctx context.Context, token, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrValidation)
	}

	if err := c.client.CheckToken(ctx, token); err != nil {
		if IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: invalid or expired token", shared.ErrUnauthorized)
		}
		return nil, err
	}

	result, err := c.client.Search(ctx, token, query, clampLimit(limit, defaultSearchLimit, maxSearchLimit))
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Items))
	for _, st := range result.Tracks.Items {
		tracks = append(tracks, ToTrack(st))
	}
	return tracks, nil
}
