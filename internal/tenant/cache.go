// Copyright 2026 The FitDesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fitdesk/fitdesk/internal/observability/logger"
)

// DefaultCacheTTL bounds how long a routing-key lookup may be served stale.
// A stale "active" entry keeps a deactivated center reachable, so the TTL is
// deliberately short and every write path invalidates explicitly on top.
const DefaultCacheTTL = 30 * time.Second

// cacheBackend is the slice of the cache client this package needs. Redis in
// production; tests swap in an in-memory map.
type cacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisBackend struct {
	rdb *redis.Client
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return b.rdb.Get(ctx, key).Bytes()
}

func (b redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b redisBackend) Del(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// CachedRepository wraps a tenant Repository with a Redis cache on the
// routing-key lookup, the hot path of tenant resolution. All writes go
// straight through and invalidate the affected key. Cache failures degrade to
// the underlying repository rather than failing the request.
type CachedRepository struct {
	inner Repository
	cache cacheBackend
	ttl   time.Duration
}

// NewCachedRepository creates a caching layer over repo.
func NewCachedRepository(inner Repository, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRepository{inner: inner, cache: redisBackend{rdb: rdb}, ttl: ttl}
}

func cacheKey(routingKey string) string {
	return "tenant:rk:" + routingKey
}

// GetByRoutingKey serves from cache when possible.
func (c *CachedRepository) GetByRoutingKey(ctx context.Context, routingKey string) (*Tenant, error) {
	key := cacheKey(routingKey)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var t Tenant
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
	}

	t, err := c.inner.GetByRoutingKey(ctx, routingKey)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(t); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			slog.DebugContext(ctx, "tenant cache set failed", logger.Error(err))
		}
	}

	return t, nil
}

// Invalidate drops the cached entry for a routing key.
func (c *CachedRepository) Invalidate(ctx context.Context, routingKey string) {
	if err := c.cache.Del(ctx, cacheKey(routingKey)); err != nil {
		slog.WarnContext(ctx, "tenant cache invalidation failed",
			logger.Error(err),
			logger.String("routing_key", routingKey),
		)
	}
}

func (c *CachedRepository) Create(ctx context.Context, t *Tenant) error {
	if err := c.inner.Create(ctx, t); err != nil {
		return err
	}
	c.Invalidate(ctx, t.RoutingKey)
	return nil
}

func (c *CachedRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return c.inner.GetByID(ctx, id)
}

func (c *CachedRepository) GetByOwner(ctx context.Context, ownerPrincipalID string) (*Tenant, error) {
	return c.inner.GetByOwner(ctx, ownerPrincipalID)
}

// Update invalidates both the previous and the new routing key so a moved
// subdomain neither lingers nor shadows.
func (c *CachedRepository) Update(ctx context.Context, t *Tenant) error {
	prev, err := c.inner.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if err := c.inner.Update(ctx, t); err != nil {
		return err
	}
	c.Invalidate(ctx, prev.RoutingKey)
	c.Invalidate(ctx, t.RoutingKey)
	return nil
}

// SetActive invalidates immediately: a deactivated tenant must stop resolving
// as soon as the write lands, not when the TTL runs out.
func (c *CachedRepository) SetActive(ctx context.Context, id string, active bool) error {
	t, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.inner.SetActive(ctx, id, active); err != nil {
		return err
	}
	c.Invalidate(ctx, t.RoutingKey)
	return nil
}

func (c *CachedRepository) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return c.inner.List(ctx, limit, offset)
}
