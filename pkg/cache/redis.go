package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type LinkCacheInterface interface {
	Get(ctx context.Context, slug string) (*CachedLink, error)
	Set(ctx context.Context, slug string, link *CachedLink, ttl time.Duration) error
	Delete(ctx context.Context, slug string) error
	IncrementShopView(ctx context.Context, shopID string) (int64, error)
	ResetShopViews(ctx context.Context, shopID string) error
	IncrementShopClick(ctx context.Context, shopID string) (int64, error)
	ResetShopClicks(ctx context.Context, shopID string) error
}

type LinkCache struct {
	client *redis.Client
}

// CachedLink holds the public metadata for a locked link's unlock page.
// The password hash is never cached; verification always reads the store.
type CachedLink struct {
	Title     string     `json:"title"`
	HasFile   bool       `json:"has_file"`
	ExpiresAt *time.Time `json:"expires_at"`
	NotFound  bool       `json:"not_found"`
}

func NewLinkCache(client *redis.Client) *LinkCache {
	return &LinkCache{client: client}
}

func (c *LinkCache) Get(ctx context.Context, slug string) (*CachedLink, error) {
	key := "locked:" + slug
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached CachedLink
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func (c *LinkCache) Set(ctx context.Context, slug string, link *CachedLink, ttl time.Duration) error {
	key := "locked:" + slug
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *LinkCache) Delete(ctx context.Context, slug string) error {
	return c.client.Del(ctx, "locked:"+slug).Err()
}

// IncrementShopView bumps the buffered view counter for a shop and returns
// the new value. The service flushes the buffer to Postgres periodically.
func (c *LinkCache) IncrementShopView(ctx context.Context, shopID string) (int64, error) {
	return c.client.Incr(ctx, "shopviews:"+shopID).Result()
}

func (c *LinkCache) ResetShopViews(ctx context.Context, shopID string) error {
	return c.client.Del(ctx, "shopviews:"+shopID).Err()
}

// IncrementShopClick bumps the buffered outbound-click counter for a shop.
func (c *LinkCache) IncrementShopClick(ctx context.Context, shopID string) (int64, error) {
	return c.client.Incr(ctx, "shopclicks:"+shopID).Result()
}

func (c *LinkCache) ResetShopClicks(ctx context.Context, shopID string) error {
	return c.client.Del(ctx, "shopclicks:"+shopID).Err()
}
