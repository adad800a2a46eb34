package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "FAC-2025-00007", Format("FAC", "2025", 7))
	assert.Equal(t, "FAC-2025-00001", Format("FAC", "2025", 1))
	// Width is a floor, not a ceiling; large ordinals are never truncated.
	assert.Equal(t, "FAC-2025-123456", Format("FAC", "2025", 123456))
}

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		identifier string
		want       int
		ok         bool
	}{
		{"FAC-2025-00007", 7, true},
		{"FAC-2025-123456", 123456, true},
		{"FAC-2024-00007", 0, false}, // wrong period
		{"INV-2025-00007", 0, false}, // wrong prefix
		{"FAC-2025-abc", 0, false},
		{"FAC-2025--5", 0, false},
		{"garbage", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseOrdinal(tt.identifier, "FAC", "2025")
		assert.Equal(t, tt.ok, ok, tt.identifier)
		assert.Equal(t, tt.want, got, tt.identifier)
	}
}

// Malformed legacy identifiers must not block allocation; they simply do not
// count toward the maximum.
func TestNextOrdinal_MalformedIdentifiersIgnored(t *testing.T) {
	existing := []string{
		"FAC-2025-00003",
		"FAC-2025-corrupt",
		"completely-wrong",
		"FAC-2025-00009",
		"",
	}
	assert.Equal(t, 10, NextOrdinal(existing, "FAC", "2025"))
	assert.Equal(t, 1, NextOrdinal(nil, "FAC", "2025"))
	assert.Equal(t, 1, NextOrdinal([]string{"junk"}, "FAC", "2025"))
}

// TestPurpose: Validates that concurrent allocations for one (tenant, period) pair never collide.
// Scope: Unit Test (concurrency)
// Security: Duplicate invoice numbers would corrupt a center's billing records.
// Expected: N concurrent calls yield N distinct identifiers.
// Test Case ID: SEQ-01
func TestMemoryAllocator_ConcurrentAllocationsDistinct(t *testing.T) {
	allocator := NewMemoryAllocator()
	ctx := context.Background()

	const n = 100
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := allocator.Next(ctx, "t-1", "2025", "FAC")
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate identifier %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestMemoryAllocator_PairsAreIndependent(t *testing.T) {
	allocator := NewMemoryAllocator()
	ctx := context.Background()

	a1, _ := allocator.Next(ctx, "t-a", "2025", "FAC")
	b1, _ := allocator.Next(ctx, "t-b", "2025", "FAC")
	a2, _ := allocator.Next(ctx, "t-a", "2026", "FAC")

	// Each (tenant, period) pair has its own sequence starting at 1.
	assert.Equal(t, "FAC-2025-00001", a1)
	assert.Equal(t, "FAC-2025-00001", b1)
	assert.Equal(t, "FAC-2026-00001", a2)
}

func TestMemoryAllocator_SeededMalformedSuffixes(t *testing.T) {
	allocator := NewMemoryAllocator()
	allocator.Seed("t-1", "2025", "FAC-2025-00004", "FAC-2025-zzz", "noise")

	id, err := allocator.Next(context.Background(), "t-1", "2025", "FAC")
	assert.NoError(t, err)
	assert.Equal(t, "FAC-2025-00005", id)
}
