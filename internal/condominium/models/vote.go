package models

import (
	"strings"
	"time"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
)

// Option is a ballot choice. EMPTY is the zero value and is never recorded.
type Option string

const (
	OptionEmpty      Option = "EMPTY"
	OptionYes        Option = "YES"
	OptionNo         Option = "NO"
	OptionAbstention Option = "ABSTENTION"
)

// ParseOption validates external input. An empty string parses as EMPTY so the
// voting guard, not the parser, reports it.
func ParseOption(s string) (Option, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return OptionEmpty, nil
	}
	o := Option(s)
	switch o {
	case OptionEmpty, OptionYes, OptionNo, OptionAbstention:
		return o, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid option: "+s)
}

// Vote is one unit's ballot on a topic. At most one per (TopicTitle, Unit).
type Vote struct {
	TopicTitle  string           `json:"topic_title"`
	Unit        id.ResidenceID   `json:"unit"`
	Participant id.ParticipantID `json:"participant"`
	Option      Option           `json:"option"`
	CastAt      time.Time        `json:"cast_at"`
}

// Tally is the outcome of counting a topic's votes.
type Tally struct {
	Yes        int `json:"yes"`
	No         int `json:"no"`
	Abstention int `json:"abstention"`
}

// Total is the number of distinct unit votes, which is what quorum counts.
func (t Tally) Total() int {
	return t.Yes + t.No + t.Abstention
}

// Approved reports a strict YES majority over NO; abstentions do not count.
func (t Tally) Approved() bool {
	return t.Yes > t.No
}

// Count tallies votes.
func Count(votes []*Vote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Option {
		case OptionYes:
			t.Yes++
		case OptionNo:
			t.No++
		case OptionAbstention:
			t.Abstention++
		}
	}
	return t
}
