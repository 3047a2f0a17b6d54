package events

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"condo/internal/condominium/models"
)

// Fanout publishes to every sink concurrently and joins their errors.
// One sink failing does not stop delivery to the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, events ...models.Event) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, p := range f {
		if p == nil {
			continue
		}
		g.Go(func() error {
			if err := p.Publish(ctx, events...); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
