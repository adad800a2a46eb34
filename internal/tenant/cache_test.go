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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// memoryBackend is an in-memory cacheBackend. Entries never expire on their
// own, which makes staleness visible: anything still readable here was not
// invalidated.
type memoryBackend struct {
	entries map[string][]byte
	failing bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: make(map[string][]byte)}
}

var errBackendDown = errors.New("backend down")

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	if b.failing {
		return nil, errBackendDown
	}
	data, ok := b.entries[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return data, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if b.failing {
		return errBackendDown
	}
	b.entries[key] = value
	return nil
}

func (b *memoryBackend) Del(_ context.Context, key string) error {
	if b.failing {
		return errBackendDown
	}
	delete(b.entries, key)
	return nil
}

// countingRepo is a mutable in-memory Repository that counts routing-key
// lookups so tests can tell cache hits from pass-throughs.
type countingRepo struct {
	tenants map[string]*Tenant
	lookups int
}

func newCountingRepo(tenants ...*Tenant) *countingRepo {
	r := &countingRepo{tenants: make(map[string]*Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *countingRepo) Create(_ context.Context, t *Tenant) error {
	r.tenants[t.ID] = t
	return nil
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *countingRepo) GetByRoutingKey(_ context.Context, routingKey string) (*Tenant, error) {
	r.lookups++
	for _, t := range r.tenants {
		if t.RoutingKey == routingKey {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (r *countingRepo) GetByOwner(_ context.Context, ownerPrincipalID string) (*Tenant, error) {
	for _, t := range r.tenants {
		if t.OwnerPrincipalID == ownerPrincipalID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (r *countingRepo) Update(_ context.Context, t *Tenant) error {
	if _, ok := r.tenants[t.ID]; !ok {
		return ErrTenantNotFound
	}
	copied := *t
	r.tenants[t.ID] = &copied
	return nil
}

func (r *countingRepo) SetActive(_ context.Context, id string, active bool) error {
	t, ok := r.tenants[id]
	if !ok {
		return ErrTenantNotFound
	}
	t.Active = active
	return nil
}

func (r *countingRepo) List(_ context.Context, _, _ int) ([]*Tenant, error) {
	out := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

func newCachedRepo(inner Repository, backend cacheBackend) *CachedRepository {
	return &CachedRepository{inner: inner, cache: backend, ttl: time.Hour}
}

func TestCachedRepository_ServesRepeatLookupsFromCache(t *testing.T) {
	repo := newCountingRepo(&Tenant{ID: "t-1", RoutingKey: "powerfit", Active: true})
	cached := newCachedRepo(repo, newMemoryBackend())
	ctx := context.Background()

	first, err := cached.GetByRoutingKey(ctx, "powerfit")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", first.ID)

	second, err := cached.GetByRoutingKey(ctx, "powerfit")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", second.ID)
	assert.Equal(t, 1, repo.lookups)
}

// TestPurpose: Validates that deactivating a center takes effect before any TTL elapses.
// Scope: Unit Test
// Security: A stale active entry keeps a deactivated center resolvable and reachable.
// Expected: The lookup after SetActive passes through and sees the center inactive.
// Test Case ID: CCH-01
func TestCachedRepository_DeactivationInvalidatesImmediately(t *testing.T) {
	repo := newCountingRepo(&Tenant{ID: "t-1", RoutingKey: "powerfit", Active: true})
	cached := newCachedRepo(repo, newMemoryBackend())
	ctx := context.Background()

	// Prime the cache with the active entry; the TTL in this test never runs
	// out, so only explicit invalidation can evict it.
	primed, err := cached.GetByRoutingKey(ctx, "powerfit")
	assert.NoError(t, err)
	assert.True(t, primed.Active)

	assert.NoError(t, cached.SetActive(ctx, "t-1", false))

	after, err := cached.GetByRoutingKey(ctx, "powerfit")
	assert.NoError(t, err)
	assert.False(t, after.Active)
	assert.Equal(t, 2, repo.lookups)
}

func TestCachedRepository_UpdateInvalidatesOldAndNewKeys(t *testing.T) {
	repo := newCountingRepo(&Tenant{ID: "t-1", RoutingKey: "oldgym", Active: true})
	backend := newMemoryBackend()
	cached := newCachedRepo(repo, backend)
	ctx := context.Background()

	_, err := cached.GetByRoutingKey(ctx, "oldgym")
	assert.NoError(t, err)
	// A stale entry under the future key must not shadow the move either.
	backend.entries[cacheKey("newgym")] = backend.entries[cacheKey("oldgym")]

	moved := &Tenant{ID: "t-1", RoutingKey: "newgym", Active: true}
	assert.NoError(t, cached.Update(ctx, moved))

	assert.NotContains(t, backend.entries, cacheKey("oldgym"))
	assert.NotContains(t, backend.entries, cacheKey("newgym"))

	after, err := cached.GetByRoutingKey(ctx, "newgym")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", after.ID)

	_, err = cached.GetByRoutingKey(ctx, "oldgym")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestCachedRepository_BackendFailureDegradesToRepository(t *testing.T) {
	repo := newCountingRepo(&Tenant{ID: "t-1", RoutingKey: "powerfit", Active: true})
	backend := newMemoryBackend()
	backend.failing = true
	cached := newCachedRepo(repo, backend)
	ctx := context.Background()

	got, err := cached.GetByRoutingKey(ctx, "powerfit")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)

	got, err = cached.GetByRoutingKey(ctx, "powerfit")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, 2, repo.lookups)
}

func TestCachedRepository_CreateInvalidatesRoutingKey(t *testing.T) {
	repo := newCountingRepo()
	backend := newMemoryBackend()
	cached := newCachedRepo(repo, backend)
	ctx := context.Background()

	// A leftover entry under a re-registered key must not outlive the write.
	backend.entries[cacheKey("powerfit")] = []byte(`{"id":"t-stale"}`)

	assert.NoError(t, cached.Create(ctx, &Tenant{ID: "t-1", RoutingKey: "powerfit", Active: true}))
	assert.NotContains(t, backend.entries, cacheKey("powerfit"))
}
