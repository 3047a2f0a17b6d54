// Package adapter is the stable entry point clients call. It forwards every
// operation to the backend it currently points at and can be re-pointed by
// its owner without clients changing address.
package adapter

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	"condo/internal/events"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/requestcontext"
)

const tracerName = "condo/internal/adapter"

// Resolver finds a deployed backend by address.
type Resolver interface {
	Resolve(address id.Address) (*service.Service, error)
}

// Adapter forwards calls to the active backend.
type Adapter struct {
	owner    id.ParticipantID
	resolver Resolver

	mu       sync.RWMutex
	impl     *service.Service
	implAddr id.Address

	pointers  PointerStore
	publisher events.Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Adapter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithPublisher re-publishes the events of every committed receipt.
func WithPublisher(p events.Publisher) Option {
	return func(a *Adapter) {
		if p != nil {
			a.publisher = p
		}
	}
}

func WithPointerStore(p PointerStore) Option {
	return func(a *Adapter) {
		if p != nil {
			a.pointers = p
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Adapter) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an adapter owned by owner. A pointer found in the pointer
// store is resolved and becomes the active backend; a pointer that no longer
// resolves is logged and ignored.
func New(ctx context.Context, owner id.ParticipantID, resolver Resolver, opts ...Option) (*Adapter, error) {
	if _, err := id.ParseParticipantID(string(owner)); err != nil {
		return nil, err
	}
	a := &Adapter{
		owner:     owner,
		resolver:  resolver,
		pointers:  &MemoryPointer{},
		publisher: events.Nop{},
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}

	saved, err := a.pointers.Load(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load adapter pointer")
	}
	if saved != "" {
		backend, err := resolver.Resolve(saved)
		if err != nil {
			if a.logger != nil {
				a.logger.WarnContext(ctx, "saved backend no longer resolves", "backend", saved, "error", err)
			}
			return a, nil
		}
		a.impl, a.implAddr = backend, saved
	}
	return a, nil
}

// Owner returns the participant allowed to upgrade.
func (a *Adapter) Owner() id.ParticipantID {
	return a.owner
}

// GetImplAddress returns the active backend address, "" before the first upgrade.
func (a *Adapter) GetImplAddress() id.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.implAddr
}

// Upgrade points the adapter at the backend deployed at address. Owner only.
// Upgrading to the current address is a no-op.
func (a *Adapter) Upgrade(ctx context.Context, callerID id.ParticipantID, address id.Address) error {
	ctx, span := a.tracer.Start(ctx, "adapter.upgrade")
	defer span.End()

	err := a.upgrade(ctx, callerID, address)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}

func (a *Adapter) upgrade(ctx context.Context, callerID id.ParticipantID, address id.Address) error {
	if callerID != a.owner {
		return dErrors.New(dErrors.CodePermissionDenied, "only the owner can upgrade")
	}
	addr, err := id.ParseAddress(string(address))
	if err != nil {
		return err
	}
	backend, err := a.resolver.Resolve(addr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.implAddr == addr {
		return nil
	}
	if err := a.pointers.Save(ctx, addr); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist adapter pointer")
	}
	previous := a.implAddr
	a.impl, a.implAddr = backend, addr

	if a.metrics != nil {
		a.metrics.Upgrades.Inc()
	}
	if a.logger != nil {
		a.logger.InfoContext(ctx, "adapter upgraded",
			"event", "adapter_upgraded", "log_type", "audit",
			"request_id", requestcontext.RequestID(ctx),
			"owner", callerID, "from", previous, "to", addr)
	}
	return nil
}

func (a *Adapter) active() (*service.Service, id.Address) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.impl, a.implAddr
}

// forward runs fn against the active backend inside a span.
func forward[T any](ctx context.Context, a *Adapter, op string, fn func(context.Context, *service.Service) (T, error)) (T, error) {
	ctx, span := a.tracer.Start(ctx, "adapter."+op, trace.WithAttributes(attribute.String("condo.operation", op)))
	defer span.End()

	var zero T
	backend, addr := a.active()
	if backend == nil {
		err := dErrors.New(dErrors.CodeNotUpgraded, "you must upgrade first")
		a.finish(span, op, err)
		return zero, err
	}
	span.SetAttributes(attribute.String("condo.backend", string(addr)))

	out, err := fn(ctx, backend)
	a.finish(span, op, err)
	if err != nil {
		return zero, err
	}
	return out, nil
}

func (a *Adapter) finish(span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	if a.metrics != nil {
		a.metrics.Forwards.WithLabelValues(op, result).Inc()
	}
}

// mutate forwards a state change and publishes its receipt. A publish
// failure is logged; the change is already committed.
func (a *Adapter) mutate(ctx context.Context, op string, fn func(context.Context, *service.Service) (*models.Receipt, error)) (*models.Receipt, error) {
	receipt, err := forward(ctx, a, op, fn)
	if err != nil {
		return nil, err
	}
	if len(receipt.Events) == 0 {
		return receipt, nil
	}
	if err := a.publisher.Publish(ctx, receipt.Events...); err != nil {
		if a.metrics != nil {
			a.metrics.PublishFailures.Inc()
		}
		if a.logger != nil {
			a.logger.ErrorContext(ctx, "failed to publish receipt events",
				"operation", op, "tx_id", receipt.TxID, "events", len(receipt.Events), "error", err)
		}
	}
	return receipt, nil
}
