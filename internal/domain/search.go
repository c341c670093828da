package domain

import "encoding/json"

// SearchRequest carries the normalized client search criteria.
// Zero values mean "field not supplied"; Page defaults to 1 before the
// planner runs.
type SearchRequest struct {
	TitleQuery   string
	Year         int
	GenreID      string
	CastName     string
	DirectorName string
	Page         int
}

// HasCriteria reports whether at least one search field is present.
func (r SearchRequest) HasCriteria() bool {
	return r.TitleQuery != "" || r.Year != 0 || r.GenreID != "" ||
		r.CastName != "" || r.DirectorName != ""
}

// PersonRef is a resolved person identifier. It lives only for the
// duration of a single search request.
type PersonRef struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// MovieSummary is an opaque upstream result document. The broker never
// reinterprets it beyond the pagination envelope.
type MovieSummary = json.RawMessage

// SearchResponse is the client-facing result envelope. Page always
// echoes the requested page, including on empty short-circuit paths.
type SearchResponse struct {
	Results      []MovieSummary `json:"results"`
	TotalResults int            `json:"total_results"`
	TotalPages   int            `json:"total_pages"`
	Page         int            `json:"page"`
}

// EmptySearchResponse is the zero-result success envelope returned when
// a cast or director name resolves to nobody.
func EmptySearchResponse(page int) SearchResponse {
	return SearchResponse{
		Results:      []MovieSummary{},
		TotalResults: 0,
		TotalPages:   0,
		Page:         page,
	}
}
