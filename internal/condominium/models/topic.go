package models

import (
	"strings"
	"time"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
)

// maxTitleLength bounds the unique topic key.
const maxTitleLength = 200

// Category selects what an approved topic does.
type Category string

const (
	CategoryDecision      Category = "DECISION"
	CategorySpent         Category = "SPENT"
	CategoryChangeQuota   Category = "CHANGE_QUOTA"
	CategoryChangeManager Category = "CHANGE_MANAGER"
)

// Categories lists every category in declaration order.
var Categories = []Category{CategoryDecision, CategorySpent, CategoryChangeQuota, CategoryChangeManager}

// ParseCategory validates external input.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid category: "+s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryDecision, CategorySpent, CategoryChangeQuota, CategoryChangeManager:
		return true
	}
	return false
}

// CheckAmount enforces the category amount rule: only SPENT and CHANGE_QUOTA
// carry a value, and a quota proposal must propose a positive quota.
func (c Category) CheckAmount(amount id.Amount) error {
	switch c {
	case CategoryDecision, CategoryChangeManager:
		if !amount.IsZero() {
			return dErrors.Newf(dErrors.CodeInvalidCategoryAmount, "%s topics cannot carry an amount", c)
		}
	case CategoryChangeQuota:
		if amount.IsZero() {
			return dErrors.New(dErrors.CodeInvalidCategoryAmount, "CHANGE_QUOTA topics must propose a positive quota")
		}
	}
	return nil
}

// Status is a topic lifecycle state.
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusVoting   Status = "VOTING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
	StatusSpent    Status = "SPENT"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusIdle, StatusVoting, StatusApproved, StatusDenied, StatusSpent}

// ParseStatus validates external input.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid status: "+s)
}

// CanTransitionTo encodes IDLE → VOTING → {APPROVED, DENIED}, APPROVED → SPENT.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusIdle:
		return next == StatusVoting
	case StatusVoting:
		return next == StatusApproved || next == StatusDenied
	case StatusApproved:
		return next == StatusSpent
	}
	return false
}

// Topic is a proposal subject to the voting lifecycle.
//
// Invariants:
//   - Title is the unique, immutable key
//   - fields are editable and the topic removable only while IDLE
//   - SPENT is reachable only from an APPROVED SPENT-category topic
type Topic struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        Category         `json:"category"`
	Amount          id.Amount        `json:"amount"`
	Responsible     id.ParticipantID `json:"responsible"`
	Status          Status           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	VotingStartedAt *time.Time       `json:"voting_started_at,omitempty"`
	VotingEndedAt   *time.Time       `json:"voting_ended_at,omitempty"`
}

// NewTopic validates creation input and returns an IDLE topic.
func NewTopic(title, description string, category Category, amount id.Amount, responsible id.ParticipantID, now time.Time) (*Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "topic title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "topic title must be 200 characters or less")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid category: "+string(category))
	}
	if err := category.CheckAmount(amount); err != nil {
		return nil, err
	}
	if responsible.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParticipant, "responsible cannot be empty")
	}
	return &Topic{
		Title:       title,
		Description: description,
		Category:    category,
		Amount:      amount,
		Responsible: responsible,
		Status:      StatusIdle,
		CreatedAt:   now,
	}, nil
}

// TopicEdit is a partial update: empty or zero fields leave the topic unchanged.
type TopicEdit struct {
	Description string
	Amount      id.Amount
	Responsible id.ParticipantID
}

// CanEdit checks the IDLE requirement and the category amount rule for the edit.
func (t *Topic) CanEdit(edit TopicEdit) error {
	if t.Status != StatusIdle {
		return dErrors.Newf(dErrors.CodeInvalidState, "only IDLE topics can be edited (status %s)", t.Status)
	}
	if !edit.Amount.IsZero() {
		if err := t.Category.CheckAmount(edit.Amount); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEdit writes the non-empty fields of edit.
func (t *Topic) ApplyEdit(edit TopicEdit) {
	if edit.Description != "" {
		t.Description = edit.Description
	}
	if !edit.Amount.IsZero() {
		t.Amount = edit.Amount
	}
	if !edit.Responsible.IsNil() {
		t.Responsible = edit.Responsible
	}
}

// CanRemove checks that the topic is still IDLE.
func (t *Topic) CanRemove() error {
	if t.Status != StatusIdle {
		return dErrors.Newf(dErrors.CodeInvalidState, "only IDLE topics can be removed (status %s)", t.Status)
	}
	return nil
}

// CanOpen checks that voting can start.
func (t *Topic) CanOpen() error {
	if !t.Status.CanTransitionTo(StatusVoting) {
		return dErrors.Newf(dErrors.CodeInvalidState, "only IDLE topics can be opened for voting (status %s)", t.Status)
	}
	return nil
}

// ApplyOpen moves the topic to VOTING.
func (t *Topic) ApplyOpen(now time.Time) {
	started := now
	t.Status = StatusVoting
	t.VotingStartedAt = &started
}

// CanVote checks that the topic accepts votes.
func (t *Topic) CanVote() error {
	if t.Status != StatusVoting {
		return dErrors.Newf(dErrors.CodeInvalidState, "only VOTING topics can be voted (status %s)", t.Status)
	}
	return nil
}

// CanClose checks that voting can end.
func (t *Topic) CanClose() error {
	if t.Status != StatusVoting {
		return dErrors.Newf(dErrors.CodeInvalidState, "only VOTING topics can be closed (status %s)", t.Status)
	}
	return nil
}

// ApplyClose records the outcome.
func (t *Topic) ApplyClose(approved bool, now time.Time) {
	ended := now
	t.VotingEndedAt = &ended
	if approved {
		t.Status = StatusApproved
		return
	}
	t.Status = StatusDenied
}

// CanSpend checks that a treasury transfer may be tied to this topic.
func (t *Topic) CanSpend(amount id.Amount) error {
	if t.Category != CategorySpent || t.Status != StatusApproved {
		return dErrors.Newf(dErrors.CodeWrongTopicState,
			"only APPROVED SPENT topics can be used for transfers (category %s, status %s)", t.Category, t.Status)
	}
	if amount.GreaterThan(t.Amount) {
		return dErrors.Newf(dErrors.CodeAmountExceedsApproval,
			"amount %s exceeds the approved %s", amount, t.Amount)
	}
	return nil
}

// ApplySpend marks the approved payout as done.
func (t *Topic) ApplySpend() {
	t.Status = StatusSpent
}

// Clone returns a deep copy.
func (t *Topic) Clone() *Topic {
	if t == nil {
		return nil
	}
	c := *t
	if t.VotingStartedAt != nil {
		s := *t.VotingStartedAt
		c.VotingStartedAt = &s
	}
	if t.VotingEndedAt != nil {
		e := *t.VotingEndedAt
		c.VotingEndedAt = &e
	}
	return &c
}
