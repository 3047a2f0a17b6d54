package models

import (
	"time"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
)

// DefaultMonthlyQuota is 0.01 of the host unit.
var DefaultMonthlyQuota = id.NewAmount(id.UnitsPerCoin / 100)

// DefaultQuotaPeriod is the length of one dues period.
const DefaultQuotaPeriod = 30 * 24 * time.Hour

// State is the singleton configuration of one backend.
//
// Invariants:
//   - Manager is set at deploy and only replaced by an approved CHANGE_MANAGER topic
//   - Treasury never goes negative
type State struct {
	Manager      id.ParticipantID `json:"manager"`
	MonthlyQuota id.Amount        `json:"monthly_quota"`
	Treasury     id.Amount        `json:"treasury"`
}

// NewState returns the deploy-time state.
func NewState(manager id.ParticipantID, quota id.Amount) (*State, error) {
	if manager.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParticipant, "manager cannot be empty")
	}
	return &State{Manager: manager, MonthlyQuota: quota}, nil
}

// Deposit adds value to the treasury. Overflow past 256 bits is reported
// rather than wrapped.
func (s *State) Deposit(value id.Amount) error {
	sum, ok := s.Treasury.Add(value)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidArgument, "treasury balance overflow")
	}
	s.Treasury = sum
	return nil
}

// Withdraw removes amount from the treasury.
func (s *State) Withdraw(amount id.Amount) error {
	rest, ok := s.Treasury.Sub(amount)
	if !ok {
		return dErrors.Newf(dErrors.CodeInsufficientFunds,
			"treasury holds %s, cannot transfer %s", s.Treasury, amount)
	}
	s.Treasury = rest
	return nil
}

// Clone returns a copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
