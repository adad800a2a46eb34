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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fitdesk/fitdesk/internal/scope"
	"github.com/fitdesk/fitdesk/internal/subscription"
)

// SubscriptionStore implements scope.Store for subscriptions.
type SubscriptionStore struct {
	db *DB
}

// NewSubscriptionStore creates a new subscription store
func NewSubscriptionStore(db *DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// List lists subscriptions matching the filter. Besides equality fields it
// understands end_date_before, which the expiry sweep uses to find active
// subscriptions past their window.
func (s *SubscriptionStore) List(ctx context.Context, f scope.Filter) ([]*subscription.Subscription, error) {
	query := `
		SELECT id, tenant_id, member_id, plan_id, status, start_date, end_date, created_at, updated_at
		FROM subscriptions`

	var conds []string
	var args []any
	if f.TenantID != "" {
		args = append(args, f.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	for _, field := range []string{"status", "member_id", "plan_id"} {
		if v, ok := f.Fields[field]; ok {
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("%s = $%d", field, len(args)))
		}
	}
	if v, ok := f.Fields["end_date_before"]; ok {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("end_date < $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"
	query, args = applyPaging(query, args, f)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []*subscription.Subscription{}
	for rows.Next() {
		var sub subscription.Subscription
		if err := rows.Scan(&sub.ID, &sub.TenantID, &sub.MemberID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// Get retrieves a subscription by ID
func (s *SubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, member_id, plan_id, status, start_date, end_date, created_at, updated_at
		FROM subscriptions WHERE id = $1
	`, id).Scan(&sub.ID, &sub.TenantID, &sub.MemberID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// Insert inserts a subscription
func (s *SubscriptionStore) Insert(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, tenant_id, member_id, plan_id, status, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sub.ID, sub.TenantID, sub.MemberID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// Update updates a subscription
func (s *SubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription, expectedTenantID string) error {
	query := `
		UPDATE subscriptions SET status = $2, start_date = $3, end_date = $4, updated_at = $5
		WHERE id = $1`
	args := []any{sub.ID, sub.Status, sub.StartDate, sub.EndDate, sub.UpdatedAt}
	if expectedTenantID != "" {
		query += " AND tenant_id = $6"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return subscription.ErrSubscriptionNotFound
	}
	return nil
}

// Delete deletes a subscription
func (s *SubscriptionStore) Delete(ctx context.Context, id, expectedTenantID string) error {
	query := `DELETE FROM subscriptions WHERE id = $1`
	args := []any{id}
	if expectedTenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return subscription.ErrSubscriptionNotFound
	}
	return nil
}
