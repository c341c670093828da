package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cinescout/searchbroker/internal/abuse"
	"cinescout/searchbroker/internal/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SearchService is the query-planning core consumed by the handlers.
type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	MovieDetail(ctx context.Context, id string) (json.RawMessage, error)
	Genres(ctx context.Context) (json.RawMessage, error)
	Trending(ctx context.Context) (json.RawMessage, error)
}

type Server struct {
	search   SearchService
	governor *abuse.Governor
	logger   *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGovernor enables per-address abuse control. Without it (the
// test-execution flag) requests pass straight to the planner.
func WithGovernor(governor *abuse.Governor) ServerOption {
	return func(s *Server) {
		s.governor = governor
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/movie/", s.handleMovieDetail)
	mux.HandleFunc("/api/genres", s.handleGenres)
	mux.HandleFunc("/api/trending", s.handleTrending)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "search-broker",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	handler := metricsMiddleware(traced)
	if s.governor != nil {
		handler = abuseControlMiddleware(s.governor, handler)
	}
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, handler))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	startedAt := time.Now()
	response, err := s.search.Search(r.Context(), request)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}

	s.logger.Info("search completed",
		slog.String("query", truncate(request.TitleQuery, 80)),
		slog.Int("page", request.Page),
		slog.Int("totalResults", response.TotalResults),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingCriteria),
		errors.Is(err, domain.ErrInvalidYear),
		errors.Is(err, domain.ErrInvalidPage),
		errors.Is(err, domain.ErrInvalidGenre),
		errors.Is(err, domain.ErrNameTooLong):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrUpstreamNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		s.logger.Warn("search upstream failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "upstream catalog is unavailable")
	default:
		s.logger.Error("search failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
	}
}

func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/movie/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	document, err := s.search.MovieDetail(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMovieID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, domain.ErrUpstreamNotFound):
			writeError(w, http.StatusNotFound, "not_found", "movie not found")
		default:
			s.logger.Warn("movie detail failed", slog.String("id", truncate(id, 20)), slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "upstream_unavailable", "upstream catalog is unavailable")
		}
		return
	}
	writeRaw(w, http.StatusOK, document)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	document, err := s.search.Genres(r.Context())
	if err != nil {
		s.logger.Warn("genre list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "upstream catalog is unavailable")
		return
	}
	writeRaw(w, http.StatusOK, document)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	document, err := s.search.Trending(r.Context())
	if err != nil {
		s.logger.Warn("trending failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "upstream catalog is unavailable")
		return
	}
	writeRaw(w, http.StatusOK, document)
}

func parseSearchRequest(r *http.Request) (domain.SearchRequest, error) {
	q := r.URL.Query()
	request := domain.SearchRequest{
		TitleQuery:   strings.TrimSpace(q.Get("query")),
		GenreID:      strings.TrimSpace(q.Get("genre")),
		CastName:     strings.TrimSpace(q.Get("castName")),
		DirectorName: strings.TrimSpace(q.Get("directorName")),
		Page:         1,
	}

	// Zero means "absent" downstream, so a supplied zero must be
	// rejected here while presence is still known.
	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year == 0 {
			return domain.SearchRequest{}, domain.ErrInvalidYear
		}
		request.Year = year
	}
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return domain.SearchRequest{}, domain.ErrInvalidPage
		}
		request.Page = page
	}
	return request, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRaw(w http.ResponseWriter, status int, document json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(document)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
