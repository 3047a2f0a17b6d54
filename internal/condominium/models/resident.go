package models

import (
	"time"

	id "condo/pkg/domain"
)

// Resident binds a participant to the housing unit it acts for.
//
// Invariants:
//   - ParticipantID is non-empty and Unit is a directory residence
//   - one participant maps to at most one unit and one unit to at most one participant
//   - a counselor cannot be removed until demoted
//   - LastPaymentAt is nil until the unit pays its first quota
type Resident struct {
	ParticipantID id.ParticipantID `json:"participant_id"`
	Unit          id.ResidenceID   `json:"unit"`
	IsCounselor   bool             `json:"is_counselor"`
	LastPaymentAt *time.Time       `json:"last_payment_at,omitempty"`
}

// NextPaymentDue returns when the current period ends, or nil if never paid.
func (r *Resident) NextPaymentDue(period time.Duration) *time.Time {
	if r.LastPaymentAt == nil {
		return nil
	}
	due := r.LastPaymentAt.Add(period)
	return &due
}

// IsDefaulter reports whether dues are overdue at now. A resident who never
// paid is a defaulter; otherwise they default strictly after one full period.
func (r *Resident) IsDefaulter(now time.Time, period time.Duration) bool {
	if r.LastPaymentAt == nil {
		return true
	}
	return now.After(r.LastPaymentAt.Add(period))
}

// CanPay reports whether a new payment opens a new period at now.
func (r *Resident) CanPay(now time.Time, period time.Duration) bool {
	if r.LastPaymentAt == nil {
		return true
	}
	return !now.Before(r.LastPaymentAt.Add(period))
}

// ApplyPayment records a quota payment at now.
func (r *Resident) ApplyPayment(now time.Time) {
	paid := now
	r.LastPaymentAt = &paid
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Resident) Clone() *Resident {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastPaymentAt != nil {
		t := *r.LastPaymentAt
		c.LastPaymentAt = &t
	}
	return &c
}
