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

	"github.com/fitdesk/fitdesk/internal/identity"
)

// PrincipalRepository implements identity.Repository
type PrincipalRepository struct {
	db *DB
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// Create inserts a new principal. The home tenant is written here and never
// updated again; no UPDATE path for it exists in this repository.
func (r *PrincipalRepository) Create(ctx context.Context, p *identity.Principal) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO principals (id, email, home_tenant_id, super_admin, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Email, p.HomeTenantID, p.SuperAdmin, p.Role, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert principal: %w", err)
	}
	return nil
}

// GetByID retrieves a principal by ID
func (r *PrincipalRepository) GetByID(ctx context.Context, id string) (*identity.Principal, error) {
	return r.scanOne(ctx, `
		SELECT id, email, home_tenant_id, super_admin, role, created_at, updated_at
		FROM principals WHERE id = $1
	`, id)
}

// GetByEmail retrieves a principal by email
func (r *PrincipalRepository) GetByEmail(ctx context.Context, email string) (*identity.Principal, error) {
	return r.scanOne(ctx, `
		SELECT id, email, home_tenant_id, super_admin, role, created_at, updated_at
		FROM principals WHERE email = $1
	`, email)
}

// ListByTenant lists all principals provisioned into a tenant
func (r *PrincipalRepository) ListByTenant(ctx context.Context, tenantID string) ([]*identity.Principal, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, email, home_tenant_id, super_admin, role, created_at, updated_at
		FROM principals WHERE home_tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var principals []*identity.Principal
	for rows.Next() {
		var p identity.Principal
		if err := rows.Scan(&p.ID, &p.Email, &p.HomeTenantID, &p.SuperAdmin, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, &p)
	}
	return principals, rows.Err()
}

func (r *PrincipalRepository) scanOne(ctx context.Context, query string, arg any) (*identity.Principal, error) {
	var p identity.Principal
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Email, &p.HomeTenantID, &p.SuperAdmin, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return &p, nil
}

// CredentialRepository stores password hashes and implements both
// identity.CredentialVerifier and identity.CredentialRegistrar. The hashing
// scheme itself lives in identity.PasswordHasher.
type CredentialRepository struct {
	db     *DB
	hasher *identity.PasswordHasher
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB, hasher *identity.PasswordHasher) *CredentialRepository {
	return &CredentialRepository{db: db, hasher: hasher}
}

// Register stores a hashed credential for a principal.
func (r *CredentialRepository) Register(ctx context.Context, principalID, password string) error {
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash credential: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO credentials (principal_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (principal_id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`, principalID, hash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Verify checks a password against the stored hash.
func (r *CredentialRepository) Verify(ctx context.Context, principalID, password string) error {
	var hash string
	err := r.db.pool.QueryRow(ctx, `
		SELECT password_hash FROM credentials WHERE principal_id = $1
	`, principalID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrInvalidCredentials
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}

	ok, err := r.hasher.Compare(password, hash)
	if err != nil {
		return fmt.Errorf("failed to compare credential: %w", err)
	}
	if !ok {
		return identity.ErrInvalidCredentials
	}
	return nil
}
