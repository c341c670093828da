// Package search contains the query-resolution core: request
// validation, person-name resolution, upstream strategy selection and
// the single-shot fallback.
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"cinescout/searchbroker/internal/domain"
)

const (
	minYear = 1880
	maxPage = 500

	maxPersonNameLength = 100

	sortByPopularity = "popularity.desc"
)

var genreIDPattern = regexp.MustCompile(`^\d+$`)

// Fetcher performs a single cached upstream fetch.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params map[string]string) (json.RawMessage, error)
}

type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the wall clock used for year validation.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(fetcher Fetcher, options ...ServiceOption) *Service {
	service := &Service{
		fetcher: fetcher,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service
}

// upstreamPage mirrors the provider's paginated envelope. Result
// documents stay opaque.
type upstreamPage struct {
	Results      []json.RawMessage `json:"results"`
	TotalResults int               `json:"total_results"`
	TotalPages   int               `json:"total_pages"`
	Page         int               `json:"page"`
}

// Search validates the request, resolves person names, picks a
// strategy and executes it, falling back from Discover to Title once
// when a keyword was supplied and Discover came up empty.
func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	request = normalizeRequest(request)
	if err := s.validate(request); err != nil {
		return domain.SearchResponse{}, err
	}

	// Cast and director resolution are independent; run them in
	// parallel and join before the primary call needs their ids.
	var cast, director domain.PersonRef
	var castFound, directorFound bool
	group, groupCtx := errgroup.WithContext(ctx)
	if request.CastName != "" {
		group.Go(func() error {
			var err error
			cast, castFound, err = s.resolvePerson(groupCtx, request.CastName)
			return err
		})
	}
	if request.DirectorName != "" {
		group.Go(func() error {
			var err error
			director, directorFound, err = s.resolvePerson(groupCtx, request.DirectorName)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return domain.SearchResponse{}, err
	}

	// An unresolved name is a valid empty outcome, not an error.
	if request.CastName != "" && !castFound {
		s.logger.Debug("cast name resolved to nobody", slog.String("name", request.CastName))
		return domain.EmptySearchResponse(request.Page), nil
	}
	if request.DirectorName != "" && !directorFound {
		s.logger.Debug("director name resolved to nobody", slog.String("name", request.DirectorName))
		return domain.EmptySearchResponse(request.Page), nil
	}

	useTitle := request.GenreID == "" && cast.ID == 0 && director.ID == 0 && request.TitleQuery != ""
	if useTitle {
		page, err := s.titleSearch(ctx, request)
		if err != nil {
			return domain.SearchResponse{}, err
		}
		return shape(page, request.Page), nil
	}

	page, err := s.discover(ctx, request, cast, director)
	if err != nil {
		return domain.SearchResponse{}, err
	}
	if len(page.Results) == 0 && request.TitleQuery != "" {
		// One fallback attempt, never more.
		s.logger.Debug("discover returned nothing, falling back to title search",
			slog.String("query", request.TitleQuery),
		)
		page, err = s.titleSearch(ctx, request)
		if err != nil {
			return domain.SearchResponse{}, err
		}
	}
	return shape(page, request.Page), nil
}

func (s *Service) titleSearch(ctx context.Context, request domain.SearchRequest) (upstreamPage, error) {
	params := map[string]string{
		"query": request.TitleQuery,
		"page":  strconv.Itoa(request.Page),
	}
	if request.Year != 0 {
		params["year"] = strconv.Itoa(request.Year)
	}
	return s.fetchPage(ctx, "/search/movie", params)
}

func (s *Service) discover(ctx context.Context, request domain.SearchRequest, cast, director domain.PersonRef) (upstreamPage, error) {
	params := map[string]string{
		"page":    strconv.Itoa(request.Page),
		"sort_by": sortByPopularity,
	}
	if request.Year != 0 {
		params["primary_release_year"] = strconv.Itoa(request.Year)
	}
	if request.GenreID != "" {
		params["with_genres"] = request.GenreID
	}
	if cast.ID != 0 {
		params["with_cast"] = strconv.Itoa(cast.ID)
	}
	if director.ID != 0 {
		params["with_crew"] = strconv.Itoa(director.ID)
	}
	if request.TitleQuery != "" {
		params["with_keywords"] = request.TitleQuery
	}
	return s.fetchPage(ctx, "/discover/movie", params)
}

func (s *Service) fetchPage(ctx context.Context, path string, params map[string]string) (upstreamPage, error) {
	document, err := s.fetcher.Fetch(ctx, path, params)
	if err != nil {
		return upstreamPage{}, err
	}
	var page upstreamPage
	if err := json.Unmarshal(document, &page); err != nil {
		s.logger.Warn("malformed upstream page", slog.String("path", path), slog.String("error", err.Error()))
		return upstreamPage{}, domain.ErrUpstreamUnavailable
	}
	return page, nil
}

func normalizeRequest(request domain.SearchRequest) domain.SearchRequest {
	request.TitleQuery = strings.TrimSpace(request.TitleQuery)
	request.GenreID = strings.TrimSpace(request.GenreID)
	request.CastName = strings.TrimSpace(request.CastName)
	request.DirectorName = strings.TrimSpace(request.DirectorName)
	if request.Page == 0 {
		request.Page = 1
	}
	return request
}

func (s *Service) validate(request domain.SearchRequest) error {
	if !request.HasCriteria() {
		return domain.ErrMissingCriteria
	}
	if request.Year != 0 {
		if request.Year < minYear || request.Year > s.now().Year()+5 {
			return domain.ErrInvalidYear
		}
	}
	if request.Page < 1 || request.Page > maxPage {
		return domain.ErrInvalidPage
	}
	if request.GenreID != "" && !genreIDPattern.MatchString(request.GenreID) {
		return domain.ErrInvalidGenre
	}
	if utf8.RuneCountInString(request.CastName) > maxPersonNameLength ||
		utf8.RuneCountInString(request.DirectorName) > maxPersonNameLength {
		return domain.ErrNameTooLong
	}
	return nil
}

// shape rewrites the pagination envelope around the requested page so
// clients see a consistent value on every path.
func shape(page upstreamPage, requestedPage int) domain.SearchResponse {
	results := page.Results
	if results == nil {
		results = []json.RawMessage{}
	}
	return domain.SearchResponse{
		Results:      results,
		TotalResults: page.TotalResults,
		TotalPages:   page.TotalPages,
		Page:         requestedPage,
	}
}
