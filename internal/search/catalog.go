package search

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"cinescout/searchbroker/internal/domain"
)

// detailAppend expands the single-movie document with its related data
// in one upstream round trip.
const detailAppend = "credits,videos,images,recommendations,reviews"

// MovieDetail fetches the full movie document for id, with credits,
// videos, images, recommendations and reviews merged in. Invalid ids
// fail before any network call.
func (s *Service) MovieDetail(ctx context.Context, rawID string) (json.RawMessage, error) {
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidMovieID
	}
	return s.fetcher.Fetch(ctx, "/movie/"+strconv.Itoa(id), map[string]string{
		"append_to_response": detailAppend,
	})
}

// Genres returns the provider's movie genre list.
func (s *Service) Genres(ctx context.Context) (json.RawMessage, error) {
	return s.fetcher.Fetch(ctx, "/genre/movie/list", nil)
}

// Trending returns the provider's weekly trending document.
func (s *Service) Trending(ctx context.Context) (json.RawMessage, error) {
	return s.fetcher.Fetch(ctx, "/trending/movie/week", nil)
}
