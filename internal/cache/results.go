package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"dineoffer-api/internal/models"
)

// ResultCache stores materialized aggregation results so repeated lookups
// for the same restaurant do not re-query every platform.
type ResultCache struct {
	store Cache
	ttl   time.Duration
}

// NewResultCache wraps a byte store with aggregation-result semantics.
func NewResultCache(store Cache, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{store: store, ttl: ttl}
}

// Key derives the cache key for one aggregation query. Restaurant and city
// are case-folded and platform order is normalized so equivalent requests
// share an entry.
func (c *ResultCache) Key(restaurant, city string, platforms []models.Platform, mode string) string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	sort.Strings(names)

	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(restaurant)),
		strings.ToLower(strings.TrimSpace(city)),
		strings.Join(names, ","),
		mode,
	}, "|")

	sum := sha256.Sum256([]byte(raw))
	return "aggregate:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached result for the key, or false on a miss. A corrupt
// entry counts as a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (models.AggregateResponse, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return models.AggregateResponse{}, false
	}

	var resp models.AggregateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		_ = c.store.Delete(ctx, key)
		return models.AggregateResponse{}, false
	}
	resp.Cached = true
	return resp, true
}

// Set stores a completed aggregation result.
func (c *ResultCache) Set(ctx context.Context, key string, resp models.AggregateResponse) error {
	resp.Cached = false
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, data, c.ttl)
}
