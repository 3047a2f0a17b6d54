// Package audit keeps an append-only journal of every committed event so
// clients can page through a backend's history after the fact.
package audit

import (
	"context"
	"log/slog"

	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
)

// Query selects journal entries. Zero Backend or Type match everything.
type Query struct {
	Backend id.Address
	Type    models.EventType
	Page    int
	Size    int
}

// Validate applies the same paging bounds as the backend listings.
func (q Query) Validate() error {
	if q.Page < 1 {
		return dErrors.New(dErrors.CodeInvalidArgument, "page must be 1 or greater")
	}
	if q.Size < 1 || q.Size > service.MaxPageSize {
		return dErrors.Newf(dErrors.CodeInvalidArgument, "page size must be between 1 and %d", service.MaxPageSize)
	}
	return nil
}

func (q Query) matches(e models.Event) bool {
	return (q.Backend == "" || e.Backend == q.Backend) && (q.Type == "" || e.Type == q.Type)
}

// Store persists journal entries. Append is idempotent per event id.
type Store interface {
	Append(ctx context.Context, events ...models.Event) error
	// List returns matching events newest first.
	List(ctx context.Context, q Query) (models.Page[models.Event], error)
}

// Journal is an events.Publisher that records instead of broadcasting.
type Journal struct {
	store  Store
	logger *slog.Logger
}

func NewJournal(store Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: store, logger: logger}
}

func (j *Journal) Publish(ctx context.Context, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := j.store.Append(ctx, events...); err != nil {
		j.logger.ErrorContext(ctx, "failed to journal events", "count", len(events), "error", err)
		return err
	}
	return nil
}

func (j *Journal) List(ctx context.Context, q Query) (models.Page[models.Event], error) {
	if err := q.Validate(); err != nil {
		return models.Page[models.Event]{}, err
	}
	page, err := j.store.List(ctx, q)
	if err != nil {
		return models.Page[models.Event]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read event history")
	}
	return page, nil
}
