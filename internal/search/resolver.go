package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cinescout/searchbroker/internal/domain"
)

var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

type personPage struct {
	Results []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"results"`
}

// resolvePerson turns a free-text name into a provider identifier via
// the person-search endpoint, adult filtering disabled. The first
// result in upstream order wins; the provider's own ranking is
// trusted. found=false means an empty result set, which callers treat
// as a valid zero-result outcome.
func (s *Service) resolvePerson(ctx context.Context, name string) (domain.PersonRef, bool, error) {
	query := foldName(name)
	document, err := s.fetcher.Fetch(ctx, "/search/person", map[string]string{
		"query":         query,
		"include_adult": "false",
	})
	if err != nil {
		return domain.PersonRef{}, false, err
	}

	var page personPage
	if err := json.Unmarshal(document, &page); err != nil {
		s.logger.Warn("malformed person page", slog.String("error", err.Error()))
		return domain.PersonRef{}, false, domain.ErrUpstreamUnavailable
	}
	if len(page.Results) == 0 {
		return domain.PersonRef{}, false, nil
	}
	first := page.Results[0]
	return domain.PersonRef{Name: first.Name, ID: first.ID}, true, nil
}

// foldName trims the name and strips combining diacritics so ASCII
// input matches accented provider entries. Identical folded names also
// collide on the same cache key.
func foldName(name string) string {
	trimmed := strings.TrimSpace(name)
	folded, _, err := transform.String(nameFolder, trimmed)
	if err != nil {
		return trimmed
	}
	return folded
}
