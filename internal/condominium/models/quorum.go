package models

import "fmt"

// QuorumRule sets the minimum number of distinct unit votes a topic needs
// before it can be closed: the larger of Floor and Bps/10000 of all units.
type QuorumRule struct {
	Floor int `json:"floor"`
	Bps   int `json:"bps"`
}

// Required returns the minimum vote count for a directory of units residences.
func (r QuorumRule) Required(units int) int {
	fraction := (r.Bps*units + 9999) / 10000
	return max(r.Floor, fraction)
}

// QuorumPolicy maps categories to quorum rules.
type QuorumPolicy map[Category]QuorumRule

// DefaultQuorumPolicy gives 5, 10, 15 and 20 votes for a forty unit building.
func DefaultQuorumPolicy() QuorumPolicy {
	return QuorumPolicy{
		CategoryDecision:      {Floor: 5},
		CategorySpent:         {Floor: 10},
		CategoryChangeManager: {Bps: 3750},
		CategoryChangeQuota:   {Bps: 5000},
	}
}

// Validate rejects negative parameters and fractions over 100%.
func (p QuorumPolicy) Validate() error {
	for _, c := range Categories {
		r, ok := p[c]
		if !ok {
			return fmt.Errorf("no quorum rule for %s", c)
		}
		if r.Floor < 0 || r.Bps < 0 || r.Bps > 10000 {
			return fmt.Errorf("invalid quorum rule for %s: %+v", c, r)
		}
	}
	return nil
}

// Required returns the minimum vote count for c.
func (p QuorumPolicy) Required(c Category, units int) int {
	return p[c].Required(units)
}
