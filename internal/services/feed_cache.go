package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charlesng35/campushub/internal/cache"
	"github.com/charlesng35/campushub/pkg/metrics"
)

const (
	feedGenerationKey = "feed:generation"
	feedGenerationTTL = 30 * 24 * time.Hour
	defaultFeedTTL    = 2 * time.Minute
)

// FeedCache stores composed feeds per user under feed:<generation>:<user>. Bumping the
// generation invalidates every cached feed at once.
type FeedCache struct {
	store cache.Store
	ttl   time.Duration
}

// NewFeedCache wraps store. A nil store disables caching.
func NewFeedCache(store cache.Store, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = defaultFeedTTL
	}
	return &FeedCache{store: store, ttl: ttl}
}

func (c *FeedCache) enabled() bool {
	return c != nil && c.store != nil
}

// Generation returns the current feed generation, zero when none was recorded.
func (c *FeedCache) Generation(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	raw, ok, err := c.store.Get(ensureContext(ctx), feedGenerationKey)
	if err != nil {
		return 0, fmt.Errorf("feed cache: read generation: %w", err)
	}
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, nil
	}
	return gen, nil
}

// Load returns the cached feed of a user.
func (c *FeedCache) Load(ctx context.Context, userID string) ([]FeedItem, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		metrics.FeedCache.WithLabelValues("error").Inc()
		return nil, false, err
	}

	raw, ok, err := c.store.Get(ensureContext(ctx), key)
	if err != nil {
		metrics.FeedCache.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("feed cache: get: %w", err)
	}
	if !ok {
		metrics.FeedCache.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	var items []FeedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		metrics.FeedCache.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("feed cache: decode: %w", err)
	}
	metrics.FeedCache.WithLabelValues("hit").Inc()
	return items, true, nil
}

// Save caches the composed feed of a user.
func (c *FeedCache) Save(ctx context.Context, userID string, items []FeedItem) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("feed cache: encode: %w", err)
	}
	if err := c.store.Set(ensureContext(ctx), key, payload, c.ttl); err != nil {
		return fmt.Errorf("feed cache: set: %w", err)
	}
	return nil
}

// InvalidateUsers drops the cached feeds of the supplied users.
func (c *FeedCache) InvalidateUsers(ctx context.Context, userIDs ...string) error {
	userIDs = normaliseIDs(userIDs)
	if !c.enabled() || len(userIDs) == 0 {
		return nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = feedKey(gen, id)
	}
	if err := c.store.Delete(ensureContext(ctx), keys...); err != nil {
		return fmt.Errorf("feed cache: delete: %w", err)
	}
	return nil
}

// InvalidateAll bumps the generation so every cached feed is ignored.
func (c *FeedCache) InvalidateAll(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	if _, _, err := c.store.IncrementWithTTL(ensureContext(ctx), feedGenerationKey, feedGenerationTTL); err != nil {
		return fmt.Errorf("feed cache: bump generation: %w", err)
	}
	return nil
}

func (c *FeedCache) key(ctx context.Context, userID string) (string, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", err
	}
	return feedKey(gen, userID), nil
}

func feedKey(generation int64, userID string) string {
	return "feed:" + strconv.FormatInt(generation, 10) + ":" + userID
}
