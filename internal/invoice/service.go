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

package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fitdesk/fitdesk/internal/audit"
	"github.com/fitdesk/fitdesk/internal/scope"
	"github.com/fitdesk/fitdesk/internal/sequence"
)

// maxAllocationRetries bounds how often an issue is retried after the
// allocator reports contention. Each retry repeats the whole allocation
// unit.
const maxAllocationRetries = 3

// Service issues invoices. Number allocation happens inside the store's
// insert so the read-max-then-write step and the row carrying the new number
// land in one atomic unit.
type Service struct {
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new invoice service
func NewService(auditLogger audit.Logger) *Service {
	return &Service{
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Issue creates an invoice for a member through the caller's tenant-scoped
// repository. On a transient allocation conflict the whole unit is retried.
func (s *Service) Issue(ctx context.Context, repo *scope.Repository[*Invoice], memberID string, amountCents int64) (*Invoice, error) {
	if memberID == "" {
		return nil, fmt.Errorf("member id is required")
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	issuedAt := s.now()

	var lastErr error
	for attempt := 0; attempt < maxAllocationRetries; attempt++ {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invoice id: %w", err)
		}

		inv := &Invoice{
			ID:          id.String(),
			MemberID:    memberID,
			PeriodKey:   PeriodKeyFor(issuedAt),
			AmountCents: amountCents,
			IssuedAt:    issuedAt,
			CreatedAt:   issuedAt,
		}

		created, err := repo.Create(ctx, inv)
		if err == nil {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeInvoiceIssued,
				TenantID: created.TenantID,
				Resource: created.Number,
				Metadata: map[string]any{"member_id": memberID, "amount_cents": amountCents},
			})
			return created, nil
		}
		if !errors.Is(err, sequence.ErrAllocationConflict) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("invoice number allocation kept conflicting: %w", lastErr)
}
