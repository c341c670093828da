// Package upstream wraps the external movie-catalog API behind a
// cache-first fetch with a bounded timeout.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"cinescout/searchbroker/internal/cache"
	"cinescout/searchbroker/internal/domain"
	"cinescout/searchbroker/internal/metrics"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	defaultTimeout = 8 * time.Second

	maxResponseBytes = 4 << 20
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   *cache.Store
	logger  *slog.Logger
}

type Config struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	Cache   *cache.Store
	Logger  *slog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   cfg.Cache,
		logger:  logger,
	}
}

// CacheKey canonicalizes (path, params) into a deterministic key:
// parameter names are sorted so incidental ordering differences always
// collide. The API credential is appended at request time and never
// enters the key.
func CacheKey(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}

// Fetch returns the upstream document for (path, params), consulting
// the cache first. On a miss it performs a single whole-document GET,
// stores the result, and returns it. 404 maps to ErrUpstreamNotFound;
// every other failure maps to ErrUpstreamUnavailable.
func (c *Client) Fetch(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	key := CacheKey(path, params)
	if c.cache != nil {
		if document, ok := c.cache.Get(ctx, key); ok {
			return document, nil
		}
	}

	values := url.Values{"api_key": {c.apiKey}}
	for name, value := range params {
		values.Set(name, value)
	}
	reqURL := c.baseURL + path + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, path)
	}

	startedAt := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(path).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(path, "error").Inc()
		c.logger.Warn("upstream fetch failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.UpstreamRequestsTotal.WithLabelValues(path, "not_found").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.UpstreamRequestsTotal.WithLabelValues(path, "error").Inc()
		c.logger.Warn("upstream returned non-2xx",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(path, "error").Inc()
		c.logger.Warn("upstream body read failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, path)
	}
	if !json.Valid(body) {
		metrics.UpstreamRequestsTotal.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, path)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(path, "ok").Inc()

	document := json.RawMessage(body)
	if c.cache != nil {
		c.cache.Set(ctx, key, document)
	}
	return document, nil
}
