package sequence

import (
	"context"
	"sync"
)

// MemoryAllocator hands out identifiers from process memory, for tests and
// local development. Two concurrent Next calls for the same (tenant, period)
// pair must never yield the same ordinal; a single mutex serializes the
// read-max-then-record step. The durable equivalent lives in the postgres
// invoice store, which serializes with an advisory lock instead.
type MemoryAllocator struct {
	mu     sync.Mutex
	issued map[string][]string // key: tenantID + "/" + periodKey
}

// NewMemoryAllocator creates an empty in-memory allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{issued: make(map[string][]string)}
}

// Next allocates the next identifier for the pair.
func (a *MemoryAllocator) Next(_ context.Context, tenantID, periodKey, prefix string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := tenantID + "/" + periodKey
	ordinal := NextOrdinal(a.issued[key], prefix, periodKey)
	id := Format(prefix, periodKey, ordinal)
	a.issued[key] = append(a.issued[key], id)
	return id, nil
}

// Seed records pre-existing identifiers, including malformed ones, so tests
// can exercise the malformed-suffix parsing path.
func (a *MemoryAllocator) Seed(tenantID, periodKey string, identifiers ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := tenantID + "/" + periodKey
	a.issued[key] = append(a.issued[key], identifiers...)
}
