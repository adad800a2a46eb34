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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrPrincipalNotFound   = errors.New("principal not found")
	ErrPrincipalExists     = errors.New("principal already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRole         = errors.New("invalid role")
	ErrHomeTenantRequired  = errors.New("home tenant is required for non-platform principals")
	ErrHomeTenantImmutable = errors.New("home tenant cannot be changed after creation")
)

// Role is the closed set of functions a principal can hold inside a center.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleCoach         Role = "coach"
	RoleFrontDesk     Role = "front_desk"
	RoleMember        Role = "member"
)

// ValidRole reports whether r belongs to the closed role set.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdministrator, RoleCoach, RoleFrontDesk, RoleMember:
		return true
	}
	return false
}

// Principal is an authenticated actor. A non-super-administrator principal
// belongs to exactly one center (HomeTenantID), assigned at creation and
// immutable afterwards: changing it would silently move a user between
// businesses without any data migration. Only platform super administrators
// carry an empty HomeTenantID.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	HomeTenantID string    `json:"home_tenant_id,omitempty"`
	SuperAdmin   bool      `json:"super_admin"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository defines the interface for principal storage
type Repository interface {
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id string) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Principal, error)
}

// CredentialVerifier checks a principal's password. The hashing scheme lives
// in an external identity primitive; this core only consumes the verdict.
type CredentialVerifier interface {
	Verify(ctx context.Context, principalID, password string) error
}

// CredentialRegistrar records a credential for a freshly provisioned
// principal, again delegating the hashing scheme to the external primitive.
type CredentialRegistrar interface {
	Register(ctx context.Context, principalID, password string) error
}
