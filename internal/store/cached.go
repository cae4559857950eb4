package store

import (
	"context"
	"time"

	"borneo/internal/models"
	contextutils "borneo/internal/utils"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore fronts the override lookups of a Store with an expiring LRU cache.
// Only hits are cached. Other processes (adm import, db reset) write the backend
// directly, so a hit is trusted for at most ttl.
type CachedStore struct {
	Store
	cache *expirable.LRU[string, string]
}

// NewCachedStore wraps s with a cache of the given size whose entries live for ttl
func NewCachedStore(s Store, size int, ttl time.Duration) (*CachedStore, error) {
	if size <= 0 {
		return nil, contextutils.Newf(contextutils.ErrInvalidInput, "override cache: size must be positive, got %d", size)
	}
	if ttl <= 0 {
		return nil, contextutils.Newf(contextutils.ErrInvalidInput, "override cache: ttl must be positive, got %s", ttl)
	}
	return &CachedStore{Store: s, cache: expirable.NewLRU[string, string](size, nil, ttl)}, nil
}

func overrideCacheKey(from, to models.Language, normalized string) string {
	return models.PairKey(from, to) + "/" + normalized
}

// Get serves hits from the cache, falling through to the backend
func (c *CachedStore) Get(ctx context.Context, from, to models.Language, normalized string) (string, bool, error) {
	key := overrideCacheKey(from, to, normalized)
	if v, ok := c.cache.Get(key); ok {
		return v, true, nil
	}
	translation, found, err := c.Store.Get(ctx, from, to, normalized)
	if err != nil || !found {
		return "", false, err
	}
	c.cache.Add(key, translation)
	return translation, true, nil
}

// Set writes through and refreshes the cached entry
func (c *CachedStore) Set(ctx context.Context, from, to models.Language, source, translation string) error {
	_, err := c.Import(ctx, from, to, []models.OverrideEntry{{From: from, To: to, Source: source, Translation: translation}})
	return err
}

// Import writes through and refreshes every imported entry
func (c *CachedStore) Import(ctx context.Context, from, to models.Language, entries []models.OverrideEntry) (int, error) {
	n, err := c.Store.Import(ctx, from, to, entries)
	if err != nil {
		// Part of the batch may have landed
		c.cache.Purge()
		return n, err
	}
	for _, e := range entries {
		if source := models.Normalize(e.Source); source != "" {
			c.cache.Add(overrideCacheKey(from, to, source), e.Translation)
		}
	}
	return n, nil
}

// Len returns the number of cached overrides
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
