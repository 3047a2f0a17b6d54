package audit

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
)

// InMemory keeps the journal in process memory.
type InMemory struct {
	mu     sync.RWMutex
	events []models.Event
	seen   map[uuid.UUID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{seen: make(map[uuid.UUID]struct{})}
}

func (s *InMemory) Append(_ context.Context, events ...models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if _, dup := s.seen[e.ID]; dup {
			continue
		}
		s.seen[e.ID] = struct{}{}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *InMemory) List(_ context.Context, q Query) (models.Page[models.Event], error) {
	s.mu.RLock()
	matched := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		if q.matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()
	slices.Reverse(matched)
	return service.Paginate(matched, q.Page, q.Size)
}
