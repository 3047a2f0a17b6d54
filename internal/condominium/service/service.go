// Package service implements a condominium backend: the access-control tiers,
// the resident registry, the topic and voting lifecycle, and the treasury.
//
// Every mutation runs inside one store transaction, so a failed call leaves
// no trace. Events are collected during the transaction and returned in the
// Receipt only after commit; the adapter publishes them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"condo/internal/condominium/metrics"
	"condo/internal/condominium/models"
	"condo/internal/condominium/store"
	"condo/internal/residence"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

// HostLedger holds balances of participants outside the treasury. Transfers
// credit the topic's responsible participant here.
type HostLedger interface {
	Credit(ctx context.Context, participant id.ParticipantID, amount id.Amount) error
	Balance(ctx context.Context, participant id.ParticipantID) (id.Amount, error)
}

// Service is one deployed backend.
type Service struct {
	address   id.Address
	store     store.Store
	directory *residence.Directory
	ledger    HostLedger
	quorum    models.QuorumPolicy
	period    time.Duration
	clock     func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithQuorumPolicy overrides the default quorum rules.
func WithQuorumPolicy(p models.QuorumPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.quorum = p
		}
	}
}

// WithQuotaPeriod overrides the 30 day dues period.
func WithQuotaPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithClock sets the fallback time source used when the request carries none.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a backend over an already initialized store.
func New(address id.Address, st store.Store, directory *residence.Directory, ledger HostLedger, opts ...Option) *Service {
	s := &Service{
		address:   address,
		store:     st,
		directory: directory,
		ledger:    ledger,
		quorum:    models.DefaultQuorumPolicy(),
		period:    models.DefaultQuotaPeriod,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address returns the backend's address on the host.
func (s *Service) Address() id.Address {
	return s.address
}

// QuotaPeriod returns the length of one dues period.
func (s *Service) QuotaPeriod() time.Duration {
	return s.period
}

func (s *Service) now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestcontext.ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return s.clock()
}

// txn collects the effects of one call while its store transaction is open.
// None of them is visible outside until the transaction commits.
type txn struct {
	backend id.Address
	now     time.Time
	events  []models.Event
	audits  []auditRecord
	counts  []func(m *metrics.Metrics)
}

type auditRecord struct {
	event      string
	attributes []any
}

func (t *txn) emit(payload any) {
	t.events = append(t.events, models.NewEvent(t.backend, t.now, payload))
}

// audit queues an audit log entry for after commit.
func (t *txn) audit(event string, attributes ...any) {
	t.audits = append(t.audits, auditRecord{event: event, attributes: attributes})
}

// count queues a metric update for after commit.
func (t *txn) count(record func(m *metrics.Metrics)) {
	t.counts = append(t.counts, record)
}

// mutate runs fn in one store transaction. On commit it flushes the queued
// audit entries and metrics and builds the receipt.
func (s *Service) mutate(ctx context.Context, op string, fn func(ctx context.Context, t *txn) error) (receipt *models.Receipt, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, start, err)
		}
	}()

	t := &txn{backend: s.address, now: s.now(ctx)}
	if err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		return fn(ctx, t)
	}); err != nil {
		return nil, err
	}
	for _, a := range t.audits {
		s.logAudit(ctx, a.event, a.attributes...)
	}
	if s.metrics != nil {
		for _, record := range t.counts {
			record(s.metrics)
		}
	}
	return &models.Receipt{TxID: uuid.New(), Backend: s.address, Events: t.events}, nil
}

// caller is the resolved access tier of the participant making a call.
type caller struct {
	id        id.ParticipantID
	isManager bool
	resident  *models.Resident
}

func (c caller) isCounselor() bool {
	return c.resident != nil && c.resident.IsCounselor
}

func (s *Service) resolveCaller(ctx context.Context, participant id.ParticipantID) (caller, *models.State, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return caller{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load backend state")
	}
	c := caller{id: participant, isManager: !participant.IsNil() && participant == state.Manager}
	if participant.IsNil() {
		return c, state, nil
	}
	r, err := s.store.FindResidentByParticipant(ctx, participant)
	switch {
	case err == nil:
		c.resident = r
	case !errors.Is(err, sentinel.ErrNotFound):
		return caller{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caller")
	}
	return c, state, nil
}

func (s *Service) requireManager(c caller) error {
	if !c.isManager {
		return dErrors.New(dErrors.CodePermissionDenied, "only the manager can do this")
	}
	return nil
}

func (s *Service) requireCouncil(c caller) error {
	if !c.isManager && !c.isCounselor() {
		return dErrors.New(dErrors.CodePermissionDenied, "only the manager or a counselor can do this")
	}
	return nil
}

// requireGoodStanding admits the manager and residents whose dues are current.
func (s *Service) requireGoodStanding(c caller, now time.Time) error {
	if c.isManager {
		return nil
	}
	if c.resident == nil {
		return dErrors.New(dErrors.CodePermissionDenied, "only the manager or a resident can do this")
	}
	if c.resident.IsDefaulter(now, s.period) {
		return dErrors.New(dErrors.CodePermissionDenied, "residents with overdue quotas cannot do this")
	}
	return nil
}

func validParticipant(p id.ParticipantID) error {
	if _, err := id.ParseParticipantID(string(p)); err != nil {
		return err
	}
	return nil
}

func (s *Service) findTopic(ctx context.Context, title string) (*models.Topic, error) {
	t, err := s.store.FindTopic(ctx, title)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "topic not found: "+title)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load topic")
	}
	return t, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit", "backend", s.address)
	s.logger.InfoContext(ctx, event, args...)
}
