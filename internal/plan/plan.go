package plan

import (
	"errors"
	"time"
)

var ErrPlanNotFound = errors.New("plan not found")

// Plan is a coaching or membership programme a center sells. Duration drives
// the entitlement window of subscriptions created from it.
type Plan struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	PriceCents   int64     `json:"price_cents"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Plan) GetTenantID() string     { return p.TenantID }
func (p *Plan) StampTenantID(id string) { p.TenantID = id }
func (p *Plan) RecordID() string        { return p.ID }
