package invoice

import (
	"errors"
	"strconv"
	"time"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// NumberPrefix is the fixed prefix of invoice identifiers (FAC-2025-00007).
const NumberPrefix = "FAC"

// Invoice is a billed amount for a member. Number is allocated per tenant
// and per year at insert time and never reformatted afterwards.
type Invoice struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	MemberID    string    `json:"member_id"`
	Number      string    `json:"number"`
	PeriodKey   string    `json:"period_key"`
	AmountCents int64     `json:"amount_cents"`
	IssuedAt    time.Time `json:"issued_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (i *Invoice) GetTenantID() string     { return i.TenantID }
func (i *Invoice) StampTenantID(id string) { i.TenantID = id }
func (i *Invoice) RecordID() string        { return i.ID }

// PeriodKeyFor returns the allocation period for an issue date. Sequences
// restart each calendar year.
func PeriodKeyFor(t time.Time) string {
	return strconv.Itoa(t.Year())
}
