package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cinescout/searchbroker/internal/cache"
	"cinescout/searchbroker/internal/domain"
)

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	a := CacheKey("/discover/movie", map[string]string{"page": "1", "with_genres": "28", "sort_by": "popularity.desc"})
	b := CacheKey("/discover/movie", map[string]string{"sort_by": "popularity.desc", "with_genres": "28", "page": "1"})
	if a != b {
		t.Fatalf("expected identical keys\na=%q\nb=%q", a, b)
	}
}

func TestCacheKeyDistinguishesParams(t *testing.T) {
	a := CacheKey("/search/movie", map[string]string{"query": "inception", "page": "1"})
	b := CacheKey("/search/movie", map[string]string{"query": "inception", "page": "2"})
	if a == b {
		t.Fatalf("expected different keys for different params, got %q", a)
	}
}

func TestCacheKeyWithoutParamsIsPath(t *testing.T) {
	if got := CacheKey("/genre/movie/list", nil); got != "/genre/movie/list" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestFetchServesSecondCallFromCache(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"page":1}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Cache:   cache.New(),
	})

	params := map[string]string{"query": "inception", "page": "1"}
	if _, err := client.Fetch(context.Background(), "/search/movie", params); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if _, err := client.Fetch(context.Background(), "/search/movie", params); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", calls.Load())
	}
}

func TestFetchSendsAPIKeyButKeepsItOutOfCacheKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Cache: cache.New()})
	if _, err := client.Fetch(context.Background(), "/trending/movie/week", nil); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api key on the wire, got %q", gotKey)
	}
	if strings.Contains(CacheKey("/trending/movie/week", nil), "secret") {
		t.Fatal("api key must never enter the cache key")
	}
}

func TestFetchMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Fetch(context.Background(), "/movie/999999999", nil)
	if !errors.Is(err, domain.ErrUpstreamNotFound) {
		t.Fatalf("expected ErrUpstreamNotFound, got %v", err)
	}
}

func TestFetchMapsServerErrorToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Fetch(context.Background(), "/search/movie", map[string]string{"query": "x"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestFetchMapsTimeoutToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "k",
		BaseURL: server.URL,
		Client:  &http.Client{Timeout: 10 * time.Millisecond},
	})
	_, err := client.Fetch(context.Background(), "/search/movie", map[string]string{"query": "x"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable on timeout, got %v", err)
	}
}

func TestFetchRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Fetch(context.Background(), "/search/movie", map[string]string{"query": "x"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable on malformed body, got %v", err)
	}
}
