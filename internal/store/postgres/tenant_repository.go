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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fitdesk/fitdesk/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, routing_key, name, active, owner_principal_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.RoutingKey, t.Name, t.Active, t.OwnerPrincipalID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.scanOne(ctx, `
		SELECT id, routing_key, name, active, owner_principal_id, created_at, updated_at
		FROM tenants WHERE id = $1
	`, id)
}

// GetByRoutingKey retrieves a tenant by its routing key
func (r *TenantRepository) GetByRoutingKey(ctx context.Context, routingKey string) (*tenant.Tenant, error) {
	return r.scanOne(ctx, `
		SELECT id, routing_key, name, active, owner_principal_id, created_at, updated_at
		FROM tenants WHERE routing_key = $1
	`, routingKey)
}

// GetByOwner retrieves the tenant owned by a principal
func (r *TenantRepository) GetByOwner(ctx context.Context, ownerPrincipalID string) (*tenant.Tenant, error) {
	return r.scanOne(ctx, `
		SELECT id, routing_key, name, active, owner_principal_id, created_at, updated_at
		FROM tenants WHERE owner_principal_id = $1
	`, ownerPrincipalID)
}

// Update updates a tenant
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET routing_key = $2, name = $3, owner_principal_id = $4, updated_at = $5
		WHERE id = $1
	`, t.ID, t.RoutingKey, t.Name, t.OwnerPrincipalID, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// SetActive toggles the activation flag. Deactivation is soft; the row stays.
func (r *TenantRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET active = $2, updated_at = $3 WHERE id = $1
	`, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set tenant active flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List lists tenants with pagination
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, routing_key, name, active, owner_principal_id, created_at, updated_at
		FROM tenants ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.RoutingKey, &t.Name, &t.Active, &t.OwnerPrincipalID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) scanOne(ctx context.Context, query string, arg any) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.RoutingKey, &t.Name, &t.Active, &t.OwnerPrincipalID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}
