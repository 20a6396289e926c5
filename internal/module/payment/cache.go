package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "payment:"

// Cache is a read-through cache for payment lookups. All methods are
// nil-safe so the service works without Redis configured.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache creates a new payment cache.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached payment response, if present.
func (c *Cache) Get(ctx context.Context, paymentID string) (*PaymentResponse, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKeyPrefix+paymentID).Bytes()
	if err != nil {
		return nil, false
	}
	var resp PaymentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Set stores the payment response. Failures are ignored: the cache is
// an optimization, the database is the source of truth.
func (c *Cache) Set(ctx context.Context, resp *PaymentResponse) {
	if c == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKeyPrefix+resp.PaymentID, data, c.ttl)
}

// Invalidate drops the cached entry after a reconciliation write.
func (c *Cache) Invalidate(ctx context.Context, paymentID string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, cacheKeyPrefix+paymentID)
}
