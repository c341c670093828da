package domain

import "errors"

// Client-input errors: surfaced as 4xx, never retried.
var (
	ErrMissingCriteria = errors.New("at least one search field is required")
	ErrInvalidYear     = errors.New("year must be between 1880 and five years from now")
	ErrInvalidPage     = errors.New("page must be between 1 and 500")
	ErrInvalidGenre    = errors.New("genre id must be a non-negative integer")
	ErrNameTooLong     = errors.New("person name must be at most 100 characters")
	ErrInvalidMovieID  = errors.New("movie id must be a positive integer")
)

// Provider-side errors: the upstream failure detail is logged but never
// forwarded beyond "not found".
var (
	ErrUpstreamUnavailable = errors.New("upstream catalog is unavailable")
	ErrUpstreamNotFound    = errors.New("not found upstream")
)

// ErrRateLimited is the abuse-control rejection.
var ErrRateLimited = errors.New("too many requests")
