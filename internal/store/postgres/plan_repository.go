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

	"github.com/jackc/pgx/v5"

	"github.com/fitdesk/fitdesk/internal/plan"
	"github.com/fitdesk/fitdesk/internal/scope"
)

// PlanStore implements scope.Store for plans.
type PlanStore struct {
	db *DB
}

// NewPlanStore creates a new plan store
func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db}
}

// List lists plans matching the filter
func (s *PlanStore) List(ctx context.Context, f scope.Filter) ([]*plan.Plan, error) {
	query := `
		SELECT id, tenant_id, name, price_cents, duration_days, created_at, updated_at
		FROM plans`
	where, args := buildWhere(f, map[string]string{"name": "name"})
	query += where + " ORDER BY created_at"
	query, args = applyPaging(query, args, f)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []*plan.Plan{}
	for rows.Next() {
		var p plan.Plan
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.PriceCents, &p.DurationDays, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

// Get retrieves a plan by ID
func (s *PlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var p plan.Plan
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, price_cents, duration_days, created_at, updated_at
		FROM plans WHERE id = $1
	`, id).Scan(&p.ID, &p.TenantID, &p.Name, &p.PriceCents, &p.DurationDays, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

// Insert inserts a plan
func (s *PlanStore) Insert(ctx context.Context, p *plan.Plan) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO plans (id, tenant_id, name, price_cents, duration_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.TenantID, p.Name, p.PriceCents, p.DurationDays, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

// Update updates a plan
func (s *PlanStore) Update(ctx context.Context, p *plan.Plan, expectedTenantID string) error {
	query := `
		UPDATE plans SET name = $2, price_cents = $3, duration_days = $4, updated_at = $5
		WHERE id = $1`
	args := []any{p.ID, p.Name, p.PriceCents, p.DurationDays, p.UpdatedAt}
	if expectedTenantID != "" {
		query += " AND tenant_id = $6"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return plan.ErrPlanNotFound
	}
	return nil
}

// Delete deletes a plan
func (s *PlanStore) Delete(ctx context.Context, id, expectedTenantID string) error {
	query := `DELETE FROM plans WHERE id = $1`
	args := []any{id}
	if expectedTenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return plan.ErrPlanNotFound
	}
	return nil
}
