package subscription

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInvalidTransition is returned for any move the state machine does
	// not allow. The rejected call leaves the subscription unchanged;
	// idempotent callers check state first.
	ErrInvalidTransition = errors.New("invalid subscription transition")

	// ErrTenantConsistency means a subscription, its member and its plan
	// disagree on tenant. This is upstream data corruption: surfaced and
	// logged, never silently repaired.
	ErrTenantConsistency = errors.New("subscription records disagree on tenant")
)

// Status values. EXPIRED and CANCELLED are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusExpired || to == StatusCancelled
	}
	return false
}

// Subscription is a member's entitlement window on a plan.
type Subscription struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	MemberID  string    `json:"member_id"`
	PlanID    string    `json:"plan_id"`
	Status    Status    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) GetTenantID() string     { return s.TenantID }
func (s *Subscription) StampTenantID(id string) { s.TenantID = id }
func (s *Subscription) RecordID() string        { return s.ID }
