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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fitdesk/fitdesk/internal/audit"
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByRoutingKey(ctx context.Context, routingKey string) (*Tenant, error)
	GetByOwner(ctx context.Context, ownerPrincipalID string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}

// Registry holds the authoritative mapping from routing key to tenant and the
// lifecycle operations around it.
type Registry struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewRegistry creates a new tenant registry
func NewRegistry(repo Repository, auditLogger audit.Logger) *Registry {
	return &Registry{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// Register claims a routing key for a new center and creates it active.
func (r *Registry) Register(ctx context.Context, name, routingKey, ownerPrincipalID string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("center name is required")
	}

	key := NormalizeRoutingKey(routingKey)
	if err := ValidateRoutingKey(key); err != nil {
		return nil, err
	}

	if _, err := r.repo.GetByRoutingKey(ctx, key); err == nil {
		return nil, ErrRoutingKeyTaken
	} else if !errors.Is(err, ErrTenantNotFound) {
		return nil, fmt.Errorf("failed to check routing key: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant id: %w", err)
	}

	now := time.Now()
	t := &Tenant{
		ID:               id.String(),
		RoutingKey:       key,
		Name:             name,
		Active:           true,
		OwnerPrincipalID: ownerPrincipalID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := r.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	r.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRegistered,
		TenantID: t.ID,
		ActorID:  ownerPrincipalID,
		Resource: key,
	})

	return t, nil
}

// CheckAvailability reports whether a routing key can still be claimed. A
// reserved or malformed key is simply unavailable, not an error.
func (r *Registry) CheckAvailability(ctx context.Context, routingKey string) (bool, error) {
	key := NormalizeRoutingKey(routingKey)
	if err := ValidateRoutingKey(key); err != nil {
		return false, nil
	}

	_, err := r.repo.GetByRoutingKey(ctx, key)
	if errors.Is(err, ErrTenantNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check routing key: %w", err)
	}
	return false, nil
}

// LookupActive resolves a routing key to its tenant, filtered to active.
func (r *Registry) LookupActive(ctx context.Context, routingKey string) (*Tenant, error) {
	t, err := r.repo.GetByRoutingKey(ctx, NormalizeRoutingKey(routingKey))
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrTenantInactive
	}
	return t, nil
}

// GetByID retrieves a tenant by its ID regardless of activation state.
func (r *Registry) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return r.repo.GetByID(ctx, id)
}

// RoutingKeyForTenant returns the routing key for a tenant ID. Used by the
// access guard to point a principal at their own center without exposing any
// other tenant's record.
func (r *Registry) RoutingKeyForTenant(ctx context.Context, tenantID string) (string, error) {
	t, err := r.repo.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return t.RoutingKey, nil
}

// SetActive activates or deactivates a tenant. Deactivation is soft: records
// are retained and the ID is never reused.
func (r *Registry) SetActive(ctx context.Context, id string, active bool, actorID string) error {
	if err := r.repo.SetActive(ctx, id, active); err != nil {
		return err
	}

	eventType := audit.TypeTenantDeactivated
	if active {
		eventType = audit.TypeTenantActivated
	}
	r.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: id,
		ActorID:  actorID,
	})

	return nil
}

// OwnedBy returns the tenant a principal owns.
func (r *Registry) OwnedBy(ctx context.Context, principalID string) (*Tenant, error) {
	return r.repo.GetByOwner(ctx, principalID)
}

// AssignOwner binds the owning principal to a freshly registered tenant.
// Registration creates the tenant before its administrator exists, so the
// owner is attached in a second step; an already-owned tenant is not retaken.
func (r *Registry) AssignOwner(ctx context.Context, tenantID, principalID string) error {
	t, err := r.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.OwnerPrincipalID != "" && t.OwnerPrincipalID != principalID {
		return ErrNotOwner
	}

	t.OwnerPrincipalID = principalID
	t.UpdatedAt = time.Now()
	if err := r.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// ChangeRoutingKey moves a tenant to a new subdomain. Only the owner may do
// this; the tenant ID is untouched.
func (r *Registry) ChangeRoutingKey(ctx context.Context, id, principalID, newKey string) (*Tenant, error) {
	t, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerPrincipalID != principalID {
		return nil, ErrNotOwner
	}

	key := NormalizeRoutingKey(newKey)
	if err := ValidateRoutingKey(key); err != nil {
		return nil, err
	}
	if existing, err := r.repo.GetByRoutingKey(ctx, key); err == nil && existing.ID != t.ID {
		return nil, ErrRoutingKeyTaken
	} else if err != nil && !errors.Is(err, ErrTenantNotFound) {
		return nil, fmt.Errorf("failed to check routing key: %w", err)
	}

	t.RoutingKey = key
	t.UpdatedAt = time.Now()
	if err := r.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	r.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRoutingKeyChanged,
		TenantID: t.ID,
		ActorID:  principalID,
		Resource: key,
	})

	return t, nil
}

// List lists tenants with pagination. Platform surface only.
func (r *Registry) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return r.repo.List(ctx, limit, offset)
}
