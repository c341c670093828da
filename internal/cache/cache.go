package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cinescout/searchbroker/internal/metrics"
)

const (
	defaultTTL           = 600 * time.Second
	defaultSweepInterval = 120 * time.Second
)

type entry struct {
	value     json.RawMessage
	expiresAt time.Time
}

// Store is a content-addressed TTL cache for raw upstream documents.
// Entries are immutable once stored; a Set on an existing key is an
// overwrite, not a merge. Reads of expired-but-unswept entries are
// misses, so correctness never depends on the sweep.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl           time.Duration
	sweepInterval time.Duration
	redis         *RedisBackend
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithRedis adds a Redis tier consulted before the in-memory map, so
// replicas behind the same Redis share upstream fetches.
func WithRedis(backend *RedisBackend) Option {
	return func(s *Store) {
		s.redis = backend
	}
}

func New(options ...Option) *Store {
	store := &Store{
		entries:       make(map[string]*entry),
		ttl:           defaultTTL,
		sweepInterval: defaultSweepInterval,
	}
	for _, option := range options {
		if option != nil {
			option(store)
		}
	}
	return store
}

// Get returns the cached document for key, or ok=false on a miss.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if s.redis != nil {
		if value, found, err := s.redis.Get(ctx, key); err == nil && found {
			metrics.CacheHitsTotal.Inc()
			s.storeMemory(key, value, time.Now())
			return value, true
		}
	}

	s.mu.RLock()
	cached, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(cached.expiresAt) {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return cached.value, true
}

// Set stores document under key with the configured TTL.
func (s *Store) Set(ctx context.Context, key string, document json.RawMessage) {
	if s.redis != nil {
		_ = s.redis.Set(ctx, key, document, s.ttl)
	}
	s.storeMemory(key, document, time.Now())
}

func (s *Store) storeMemory(key string, document json.RawMessage, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{
		value:     document,
		expiresAt: now.Add(s.ttl),
	}
}

// Len reports the number of resident entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartSweep launches the periodic purge of expired entries. It returns
// immediately; the sweep stops when ctx is cancelled.
func (s *Store) StartSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cached := range s.entries {
		if now.After(cached.expiresAt) {
			delete(s.entries, key)
		}
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
}
