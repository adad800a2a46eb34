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

// Package guard decides whether a request may cross the tenant boundary.
// It governs only that boundary: authentication requirements are a separate,
// downstream concern.
package guard

import (
	"context"
	"strings"

	"github.com/fitdesk/fitdesk/internal/identity"
	"github.com/fitdesk/fitdesk/internal/tenant"
)

// Decision codes
const (
	CodeNotProvisioned = "not_provisioned"
	CodeWrongTenant    = "wrong_center"
)

// Decision is the computed outcome of an authorization check. It is a value,
// never an error: callers branch on Allowed.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
	// CorrectRoutingKey is set only for wrong-center denials. It points the
	// principal at their own center and must never identify the tenant the
	// current subdomain belongs to.
	CorrectRoutingKey string
}

// Allow is the zero-cost allow decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a denial with a stable code and a human-readable reason.
func Deny(code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

// RoutingKeyLookup maps a tenant ID to its routing key. Satisfied by
// tenant.Registry.
type RoutingKeyLookup interface {
	RoutingKeyForTenant(ctx context.Context, tenantID string) (string, error)
}

// Guard enforces the home-tenant invariant: an authenticated principal may
// only operate inside the center it was provisioned into.
type Guard struct {
	allowList []string
	registry  RoutingKeyLookup
}

// New creates a guard. allowList entries are exact paths or prefixes ending
// in "*"; it is explicit configuration, never inferred from route patterns.
func New(allowList []string, registry RoutingKeyLookup) *Guard {
	return &Guard{allowList: allowList, registry: registry}
}

// Authorize evaluates the tenant-boundary rules in order, first match wins.
// It is total and deterministic given the principal, the resolved tenant and
// the path; the only I/O is the routing-key lookup on the wrong-center branch.
func (g *Guard) Authorize(ctx context.Context, p *identity.Principal, resolved tenant.Resolved, path string) Decision {
	if g.isPublic(path) {
		return Allow()
	}

	// Unauthenticated traffic passes: requiring credentials is the job of
	// the handler, not of the tenant boundary.
	if p == nil {
		return Allow()
	}

	if p.SuperAdmin {
		return Allow()
	}

	// Root-domain traffic implies no tenant, so there is no boundary to cross.
	if resolved.TenantID == "" {
		return Allow()
	}

	if p.HomeTenantID == "" {
		return Deny(CodeNotProvisioned, "account is not provisioned to any center")
	}

	if p.HomeTenantID != resolved.TenantID {
		d := Deny(CodeWrongTenant, "this account belongs to a different center")
		// Point the caller at their own center. Lookup failure leaves the
		// hint empty; the denial stands either way.
		if key, err := g.registry.RoutingKeyForTenant(ctx, p.HomeTenantID); err == nil {
			d.CorrectRoutingKey = key
		}
		return d
	}

	return Allow()
}

func (g *Guard) isPublic(path string) bool {
	for _, entry := range g.allowList {
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == entry {
			return true
		}
	}
	return false
}
