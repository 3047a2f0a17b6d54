package models

import (
	"time"

	"github.com/google/uuid"

	id "condo/pkg/domain"
)

// EventType names an observable state change.
type EventType string

const (
	EventResidentChanged  EventType = "ResidentChanged"
	EventTopicChanged     EventType = "TopicChanged"
	EventManagerChanged   EventType = "ManagerChanged"
	EventQuotaChanged     EventType = "QuotaChanged"
	EventFundsTransferred EventType = "FundsTransferred"
)

// Event is emitted after a mutation commits. Keep it transport-agnostic so
// publishers can fan out to any sink.
type Event struct {
	ID        uuid.UUID  `json:"id"`
	Type      EventType  `json:"type"`
	Backend   id.Address `json:"backend"`
	Timestamp time.Time  `json:"timestamp"`
	Payload   any        `json:"payload"`
}

type ResidentChanged struct {
	Participant id.ParticipantID `json:"participant"`
	Unit        id.ResidenceID   `json:"unit"`
	IsCounselor bool             `json:"is_counselor"`
	Removed     bool             `json:"removed"`
}

type TopicChanged struct {
	Title   string `json:"title"`
	Status  Status `json:"status"`
	Removed bool   `json:"removed,omitempty"`
}

type ManagerChanged struct {
	Manager id.ParticipantID `json:"manager"`
}

type QuotaChanged struct {
	Amount id.Amount `json:"amount"`
}

type FundsTransferred struct {
	To     id.ParticipantID `json:"to"`
	Amount id.Amount        `json:"amount"`
	Topic  string           `json:"topic"`
}

// NewEvent stamps a payload with an id and the emitting backend.
func NewEvent(backend id.Address, now time.Time, payload any) Event {
	return Event{
		ID:        uuid.New(),
		Type:      typeOf(payload),
		Backend:   backend,
		Timestamp: now,
		Payload:   payload,
	}
}

func typeOf(payload any) EventType {
	switch payload.(type) {
	case ResidentChanged:
		return EventResidentChanged
	case TopicChanged:
		return EventTopicChanged
	case ManagerChanged:
		return EventManagerChanged
	case QuotaChanged:
		return EventQuotaChanged
	case FundsTransferred:
		return EventFundsTransferred
	}
	return ""
}

// Receipt is the result handle returned for every committed mutation.
type Receipt struct {
	TxID    uuid.UUID  `json:"tx_id"`
	Backend id.Address `json:"backend"`
	Events  []Event    `json:"events"`
}

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}
