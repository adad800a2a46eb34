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

package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fitdesk/fitdesk/internal/audit"
	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/observability/logger"
	"github.com/fitdesk/fitdesk/internal/plan"
	"github.com/fitdesk/fitdesk/internal/scope"
)

// Service governs the subscription lifecycle. Every transition first checks
// that subscription, member and plan agree on tenant before any state moves.
type Service struct {
	subs        scope.Store[*Subscription]
	members     scope.Store[*member.Member]
	plans       scope.Store[*plan.Plan]
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new subscription service
func NewService(subs scope.Store[*Subscription], members scope.Store[*member.Member], plans scope.Store[*plan.Plan], auditLogger audit.Logger) *Service {
	return &Service{
		subs:        subs,
		members:     members,
		plans:       plans,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Create builds a pending subscription for a member on a plan. The entitlement
// window is derived from the plan's duration.
func (s *Service) Create(ctx context.Context, repo *scope.Repository[*Subscription], memberID, planID string, startDate time.Time) (*Subscription, error) {
	p, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription id: %w", err)
	}

	now := s.now()
	sub := &Subscription{
		ID:        id.String(),
		MemberID:  memberID,
		PlanID:    planID,
		Status:    StatusPending,
		StartDate: startDate,
		EndDate:   startDate.AddDate(0, 0, p.DurationDays),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return repo.Create(ctx, sub)
}

// Activate moves a pending subscription to active and promotes the owning
// member. Any other starting state is rejected without touching the record.
//
// The member is promoted before the subscription flips: promotion is
// idempotent, so a failure between the two writes leaves the subscription
// pending and a retried Activate completes it.
func (s *Service) Activate(ctx context.Context, sub *Subscription) error {
	if err := s.checkTenantConsistency(ctx, sub); err != nil {
		return err
	}
	if !CanTransition(sub.Status, StatusActive) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, StatusActive)
	}

	m, err := s.members.Get(ctx, sub.MemberID)
	if err != nil {
		return fmt.Errorf("failed to load member for promotion: %w", err)
	}
	if m.Status != member.StatusActive {
		m.Status = member.StatusActive
		m.UpdatedAt = s.now()
		if err := s.members.Update(ctx, m, m.TenantID); err != nil {
			return fmt.Errorf("failed to promote member: %w", err)
		}
	}

	prevStatus, prevUpdated := sub.Status, sub.UpdatedAt
	sub.Status = StatusActive
	sub.UpdatedAt = s.now()
	if err := s.subs.Update(ctx, sub, sub.TenantID); err != nil {
		sub.Status, sub.UpdatedAt = prevStatus, prevUpdated
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSubscriptionActivated,
		TenantID: sub.TenantID,
		Resource: sub.ID,
		Metadata: map[string]any{"member_id": sub.MemberID, "plan_id": sub.PlanID},
	})

	return nil
}

// Cancel terminates a pending or active subscription.
func (s *Service) Cancel(ctx context.Context, sub *Subscription) error {
	if err := s.checkTenantConsistency(ctx, sub); err != nil {
		return err
	}
	if !CanTransition(sub.Status, StatusCancelled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, StatusCancelled)
	}

	sub.Status = StatusCancelled
	sub.UpdatedAt = s.now()
	if err := s.subs.Update(ctx, sub, sub.TenantID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSubscriptionCancelled,
		TenantID: sub.TenantID,
		Resource: sub.ID,
	})

	return nil
}

// Expire moves an active subscription whose window has closed to expired.
// The member is left alone: they may hold other live subscriptions.
func (s *Service) Expire(ctx context.Context, sub *Subscription) error {
	if err := s.checkTenantConsistency(ctx, sub); err != nil {
		return err
	}
	if !CanTransition(sub.Status, StatusExpired) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, StatusExpired)
	}

	sub.Status = StatusExpired
	sub.UpdatedAt = s.now()
	if err := s.subs.Update(ctx, sub, sub.TenantID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSubscriptionExpired,
		TenantID: sub.TenantID,
		Resource: sub.ID,
	})

	return nil
}

// SweepExpired expires every active subscription whose end date has passed.
// Runs from the background sweeper, outside any request.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	due, err := s.subs.List(ctx, scope.Filter{
		Fields: map[string]any{
			"status":          string(StatusActive),
			"end_date_before": now,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range due {
		if err := s.Expire(ctx, sub); err != nil {
			slog.ErrorContext(ctx, "failed to expire subscription",
				logger.Component("subscription"),
				logger.RecordID(sub.ID),
				logger.TenantID(sub.TenantID),
				logger.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// checkTenantConsistency asserts that the subscription, its member and its
// plan all carry the same tenant stamp.
func (s *Service) checkTenantConsistency(ctx context.Context, sub *Subscription) error {
	m, err := s.members.Get(ctx, sub.MemberID)
	if err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}
	p, err := s.plans.Get(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	if sub.TenantID != m.TenantID || sub.TenantID != p.TenantID {
		slog.ErrorContext(ctx, "tenant mismatch across subscription records",
			logger.Component("subscription"),
			logger.RecordID(sub.ID),
			logger.TenantID(sub.TenantID),
			logger.String("member_tenant_id", m.TenantID),
			logger.String("plan_tenant_id", p.TenantID),
		)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeTenantConsistencyFault,
			TenantID: sub.TenantID,
			Resource: sub.ID,
			Metadata: map[string]any{
				"member_id":        sub.MemberID,
				"plan_id":          sub.PlanID,
				"member_tenant_id": m.TenantID,
				"plan_tenant_id":   p.TenantID,
			},
		})
		return ErrTenantConsistency
	}
	return nil
}
