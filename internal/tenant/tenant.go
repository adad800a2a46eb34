package tenant

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is deactivated")
	ErrRoutingKeyTaken    = errors.New("routing key is already claimed")
	ErrRoutingKeyReserved = errors.New("routing key is reserved")
	ErrRoutingKeyInvalid  = errors.New("routing key is invalid")
	ErrNotOwner           = errors.New("principal does not own this tenant")
)

// Tenant represents one gym business served by the platform. Each tenant is
// reachable through its own subdomain (RoutingKey) and owns an isolated slice
// of every partitioned table. Tenants are deactivated, never deleted; an ID is
// never reassigned.
type Tenant struct {
	ID               string    `json:"id"`
	RoutingKey       string    `json:"routing_key"`
	Name             string    `json:"name"`
	Active           bool      `json:"active"`
	OwnerPrincipalID string    `json:"owner_principal_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// reservedRoutingKeys can never be claimed by a tenant. The platform itself
// answers on these labels.
var reservedRoutingKeys = map[string]struct{}{
	"www":    {},
	"api":    {},
	"admin":  {},
	"app":    {},
	"mail":   {},
	"static": {},
	"assets": {},
	"status": {},
}

var routingKeyPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeRoutingKey lowercases and trims a candidate routing key. Lookups
// and uniqueness are always performed on the normalized form.
func NormalizeRoutingKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ValidateRoutingKey checks that a normalized routing key is a claimable DNS
// label: lowercase alphanumerics and hyphens, no leading or trailing hyphen,
// and not part of the reserved set.
func ValidateRoutingKey(key string) error {
	if !routingKeyPattern.MatchString(key) {
		return ErrRoutingKeyInvalid
	}
	if _, reserved := reservedRoutingKeys[key]; reserved {
		return ErrRoutingKeyReserved
	}
	return nil
}

// IsReservedRoutingKey reports whether the label belongs to the platform.
func IsReservedRoutingKey(key string) bool {
	_, reserved := reservedRoutingKeys[NormalizeRoutingKey(key)]
	return reserved
}
