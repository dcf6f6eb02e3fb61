package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var cacheKinds = []string{"monthly", "overdue", "aging"}

// Cache is a read-through Redis cache for report figures, keyed by report
// kind and organization. Ledger writes call Invalidate so stale figures
// never outlive the TTL after a posting.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs the cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(kind string, orgID uuid.UUID, suffix string) string {
	return fmt.Sprintf("reports:%s:%s:%s", kind, orgID, suffix)
}

// Get unmarshals a cached value into dest. The second return reports a hit.
func (c *Cache) Get(ctx context.Context, kind string, orgID uuid.UUID, suffix string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, cacheKey(kind, orgID, suffix)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value under the report key with the cache TTL.
func (c *Cache) Set(ctx context.Context, kind string, orgID uuid.UUID, suffix string, value any) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(kind, orgID, suffix), raw, c.ttl).Err()
}

// Invalidate drops every cached report for the organization.
func (c *Cache) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	var lastErr error
	for _, kind := range cacheKinds {
		pattern := fmt.Sprintf("reports:%s:%s:*", kind, orgID)
		iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				lastErr = err
			}
		}
		if err := iter.Err(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
