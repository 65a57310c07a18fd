package labelmap

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// effectiveCacheTTL bounds how stale a cached effective-mapping set may be
// after a tenant's mapping CRUD operations.
const effectiveCacheTTL = 5 * time.Minute

const redisKeyPrefix = "labelmap:effective:"

// CachedStore wraps a Store with a Redis-backed read cache for the
// resolved Effective(mappings) result, invalidating on every write.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
}

// NewCachedStore wraps inner with a Redis cache.
func NewCachedStore(inner Store, rdb *redis.Client) *CachedStore {
	return &CachedStore{inner: inner, rdb: rdb}
}

func redisKey(tenantID string) string {
	return redisKeyPrefix + tenantID
}

// List implements Store, bypassing the cache — callers that need the raw
// per-tenant rows (mapping CRUD) should not see a stale cached view.
func (c *CachedStore) List(ctx context.Context, tenantID string) ([]Mapping, error) {
	return c.inner.List(ctx, tenantID)
}

// Upsert implements Store and invalidates the tenant's cached effective set.
func (c *CachedStore) Upsert(ctx context.Context, m Mapping) error {
	if err := c.inner.Upsert(ctx, m); err != nil {
		return err
	}
	c.rdb.Del(ctx, redisKey(m.TenantID))
	return nil
}

// Delete implements Store and invalidates the tenant's cached effective set.
func (c *CachedStore) Delete(ctx context.Context, tenantID, policyType, labelValue string) error {
	if err := c.inner.Delete(ctx, tenantID, policyType, labelValue); err != nil {
		return err
	}
	c.rdb.Del(ctx, redisKey(tenantID))
	return nil
}

// Effective resolves the tenant's effective mapping set,
// checking the Redis cache before falling back to the backing Store.
func (c *CachedStore) Effective(ctx context.Context, tenantID string) ([]Mapping, error) {
	if cached, ok := c.getCached(ctx, tenantID); ok {
		return cached, nil
	}

	rows, err := c.inner.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	eff := Effective(rows)

	if b, err := json.Marshal(eff); err == nil {
		c.rdb.Set(ctx, redisKey(tenantID), b, effectiveCacheTTL)
	}
	return eff, nil
}

func (c *CachedStore) getCached(ctx context.Context, tenantID string) ([]Mapping, bool) {
	val, err := c.rdb.Get(ctx, redisKey(tenantID)).Result()
	if err != nil {
		return nil, false
	}
	var eff []Mapping
	if err := json.Unmarshal([]byte(val), &eff); err != nil {
		return nil, false
	}
	return eff, true
}
