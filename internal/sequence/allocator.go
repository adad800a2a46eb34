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

// Package sequence generates tenant-scoped, human-readable identifiers such
// as invoice numbers. Ordinals for a (tenant, period) pair never repeat;
// they may have gaps (cancelled or retried allocations) but never go
// backwards.
package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAllocationConflict is transient: the serialization mechanism detected
// contention. The caller retries the whole allocation unit, not just the
// read.
var ErrAllocationConflict = errors.New("sequence allocation conflict")

// OrdinalWidth is the zero-padded width of the numeric suffix. Identifiers
// are persisted and user facing; once issued they are never reformatted.
const OrdinalWidth = 5

// Format renders an identifier like FAC-2025-00007.
func Format(prefix, periodKey string, ordinal int) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, periodKey, OrdinalWidth, ordinal)
}

// ParseOrdinal extracts the numeric suffix from an identifier carrying the
// given prefix and period. Malformed identifiers are reported as absent
// rather than failing: a corrupt legacy number must not block allocation.
func ParseOrdinal(identifier, prefix, periodKey string) (int, bool) {
	suffix, ok := strings.CutPrefix(identifier, prefix+"-"+periodKey+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextOrdinal computes max(existing valid ordinals)+1, or 1 when none parse.
func NextOrdinal(existing []string, prefix, periodKey string) int {
	max := 0
	for _, id := range existing {
		if n, ok := ParseOrdinal(id, prefix, periodKey); ok && n > max {
			max = n
		}
	}
	return max + 1
}
