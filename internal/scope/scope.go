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

// Package scope provides the tenant-scoped data access wrapper. Every read is
// narrowed to the caller's tenant and every write is stamped with it; records
// of one center are never visible to another. Business code goes through
// Repository, never through a Store directly.
package scope

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fitdesk/fitdesk/internal/audit"
	"github.com/fitdesk/fitdesk/internal/identity"
	"github.com/fitdesk/fitdesk/internal/observability/logger"
	"github.com/fitdesk/fitdesk/internal/tenant"
)

var (
	// ErrNoTenantAvailable means a write had no determinable tenant. This is
	// a programming or configuration error, never expected in normal
	// operation, and is logged loudly rather than silently defaulted.
	ErrNoTenantAvailable = errors.New("no tenant available for write")

	// ErrCrossTenantViolation means a mutation targeted a record outside the
	// caller's tenant. Treated as a potential security incident.
	ErrCrossTenantViolation = errors.New("record belongs to another tenant")

	ErrRecordNotFound = errors.New("record not found")
)

// TenantOwned is the capability every partitioned record implements. The
// tenant stamp is set once at creation and never updated.
type TenantOwned interface {
	GetTenantID() string
	StampTenantID(id string)
	RecordID() string
}

// Filter narrows a listing. TenantID is reserved for the scope layer; stores
// must apply it whenever it is non-empty.
type Filter struct {
	TenantID string
	Fields   map[string]any
	Limit    int
	Offset   int
}

// Store is the plain data-access interface a backend implements per record
// type. expectedTenantID, when non-empty, must be part of the UPDATE/DELETE
// predicate so the ownership check and the mutation are a single atomic step.
type Store[T TenantOwned] interface {
	List(ctx context.Context, f Filter) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, rec T) error
	Update(ctx context.Context, rec T, expectedTenantID string) error
	Delete(ctx context.Context, id, expectedTenantID string) error
}

// Repository wraps a Store with tenant narrowing and stamping. It is built
// per request from the resolved tenant and the authenticated principal;
// composition replaces any inheritance-style filtering.
type Repository[T TenantOwned] struct {
	store          Store[T]
	principal      *identity.Principal
	resolved       tenant.Resolved
	auditLogger    audit.Logger
	allowBootstrap bool
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	allowBootstrap bool
}

// WithBootstrap enables the platform-bootstrap carve-out: when neither a
// resolved tenant nor a principal home tenant exists, reads are unnarrowed
// and writes may carry an empty tenant stamp. This exists solely for initial
// platform setup flows and must never be turned on for tenant traffic.
func WithBootstrap() Option {
	return func(o *options) { o.allowBootstrap = true }
}

// NewRepository creates a tenant-scoped repository for one request. principal
// may be nil for unauthenticated flows.
func NewRepository[T TenantOwned](store Store[T], p *identity.Principal, resolved tenant.Resolved, auditLogger audit.Logger, opts ...Option) *Repository[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{
		store:          store,
		principal:      p,
		resolved:       resolved,
		auditLogger:    auditLogger,
		allowBootstrap: o.allowBootstrap,
	}
}

// effectiveTenant applies the precedence that every branch of this package
// follows: resolved request tenant first, then the principal's home tenant.
func (r *Repository[T]) effectiveTenant() (tenantID string, super bool, none bool) {
	if r.principal != nil && r.principal.SuperAdmin {
		return "", true, false
	}
	if r.resolved.TenantID != "" {
		return r.resolved.TenantID, false, false
	}
	if r.principal != nil && r.principal.HomeTenantID != "" {
		return r.principal.HomeTenantID, false, false
	}
	return "", false, true
}

// FindAll lists records visible to the caller. Without any tenant signal the
// result is empty (fail safe) unless the bootstrap carve-out is enabled.
func (r *Repository[T]) FindAll(ctx context.Context, f Filter) ([]T, error) {
	tenantID, super, none := r.effectiveTenant()

	switch {
	case super:
		// Platform administrators see across centers.
	case none:
		if !r.allowBootstrap {
			return []T{}, nil
		}
	default:
		f.TenantID = tenantID
	}

	return r.store.List(ctx, f)
}

// Find retrieves one record, verifying tenant ownership on the way out. A
// record of another center reads as not found so its existence never leaks.
func (r *Repository[T]) Find(ctx context.Context, id string) (T, error) {
	var zero T
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	tenantID, super, none := r.effectiveTenant()
	if super || (none && r.allowBootstrap) {
		return rec, nil
	}
	if none || rec.GetTenantID() != tenantID {
		return zero, ErrRecordNotFound
	}
	return rec, nil
}

// Create stamps the record with the effective tenant and persists it.
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	tenantID, super, none := r.effectiveTenant()

	switch {
	case super:
		// A platform operator may create on behalf of the resolved center or
		// keep an explicit pre-assigned stamp.
		if rec.GetTenantID() == "" && r.resolved.TenantID != "" {
			rec.StampTenantID(r.resolved.TenantID)
		}
	case none:
		if !r.allowBootstrap {
			slog.ErrorContext(ctx, "write attempted with no determinable tenant",
				logger.Component("scope"),
				logger.PrincipalID(r.principalID()),
			)
			return zero, ErrNoTenantAvailable
		}
		// Bootstrap data carries an empty stamp on purpose.
	default:
		rec.StampTenantID(tenantID)
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

// Update loads the record, re-verifies ownership at the point of mutation,
// applies mutate and persists. Ownership is re-checked here even if the
// caller obtained the id through an unscoped path; the store keeps the check
// and the write atomic by including the tenant in its predicate.
func (r *Repository[T]) Update(ctx context.Context, id string, mutate func(T) error) (T, error) {
	var zero T
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	expected, err := r.verifyOwnership(ctx, rec)
	if err != nil {
		return zero, err
	}

	before := rec.GetTenantID()
	if err := mutate(rec); err != nil {
		return zero, err
	}
	if rec.GetTenantID() != before {
		// The stamp is immutable post-creation, full stop.
		return zero, ErrCrossTenantViolation
	}

	if err := r.store.Update(ctx, rec, expected); err != nil {
		return zero, err
	}
	return rec, nil
}

// Delete removes a record after the same ownership re-verification.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}

	expected, err := r.verifyOwnership(ctx, rec)
	if err != nil {
		return err
	}

	return r.store.Delete(ctx, id, expected)
}

// verifyOwnership returns the tenant the store must assert in its predicate;
// empty means no narrowing (super administrators).
func (r *Repository[T]) verifyOwnership(ctx context.Context, rec T) (string, error) {
	tenantID, super, none := r.effectiveTenant()
	if super {
		return "", nil
	}
	if none {
		if r.allowBootstrap {
			return "", nil
		}
		slog.ErrorContext(ctx, "mutation attempted with no determinable tenant",
			logger.Component("scope"),
			logger.PrincipalID(r.principalID()),
			logger.RecordID(rec.RecordID()),
		)
		return "", ErrNoTenantAvailable
	}

	if rec.GetTenantID() != tenantID {
		slog.ErrorContext(ctx, "cross-tenant mutation blocked",
			logger.Component("scope"),
			logger.PrincipalID(r.principalID()),
			logger.TenantID(tenantID),
			logger.RecordID(rec.RecordID()),
		)
		if r.auditLogger != nil {
			r.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeCrossTenantViolation,
				TenantID: tenantID,
				ActorID:  r.principalID(),
				Resource: rec.RecordID(),
			})
		}
		return "", ErrCrossTenantViolation
	}
	return tenantID, nil
}

func (r *Repository[T]) principalID() string {
	if r.principal == nil {
		return ""
	}
	return r.principal.ID
}
