// Package events delivers committed state changes to observers.
//
// Publishers only ever see events of committed calls. Delivery is best
// effort: a failed publish never undoes the call that produced the events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"condo/internal/condominium/models"
	id "condo/pkg/domain"
)

// Publisher sends events to a sink.
type Publisher interface {
	Publish(ctx context.Context, events ...models.Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, ...models.Event) error { return nil }

type envelope struct {
	ID        uuid.UUID        `json:"id"`
	Type      models.EventType `json:"type"`
	Backend   id.Address       `json:"backend"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}

// Encode renders an event in its wire form.
func Encode(e models.Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses the wire form back into an event with a typed payload.
func Decode(data []byte) (models.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	e := models.Event{ID: env.ID, Type: env.Type, Backend: env.Backend, Timestamp: env.Timestamp}

	var err error
	switch env.Type {
	case models.EventResidentChanged:
		e.Payload, err = decodePayload[models.ResidentChanged](env.Payload)
	case models.EventTopicChanged:
		e.Payload, err = decodePayload[models.TopicChanged](env.Payload)
	case models.EventManagerChanged:
		e.Payload, err = decodePayload[models.ManagerChanged](env.Payload)
	case models.EventQuotaChanged:
		e.Payload, err = decodePayload[models.QuotaChanged](env.Payload)
	case models.EventFundsTransferred:
		e.Payload, err = decodePayload[models.FundsTransferred](env.Payload)
	default:
		return models.Event{}, fmt.Errorf("decode event: unknown type %q", env.Type)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return e, nil
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
