package member

import (
	"errors"
	"time"
)

var ErrMemberNotFound = errors.New("member not found")

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Member is a person enrolled at one center. New members start inactive and
// are promoted when a subscription activates.
type Member struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Member) GetTenantID() string     { return m.TenantID }
func (m *Member) StampTenantID(id string) { m.TenantID = id }
func (m *Member) RecordID() string        { return m.ID }
