// Package host deploys condominium backends and resolves them by address.
//
// A deployment computes the residence directory, makes the deployer the
// manager, sets the default quota and registers the backend under an address
// derived from the deployer and a per-deployer nonce.
package host

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"condo/internal/condominium/metrics"
	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	"condo/internal/condominium/store"
	"condo/internal/residence"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/tx"
)

// Host owns every deployed backend.
type Host struct {
	mu       sync.RWMutex
	backends map[id.Address]*service.Service
	nonces   map[id.ParticipantID]uint64

	db      *sql.DB
	ledger  service.HostLedger
	layout  residence.Layout
	quota   id.Amount
	period  time.Duration
	quorum  models.QuorumPolicy
	clock   func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Host)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Host) {
		h.metrics = m
	}
}

// WithPostgres persists backends, their state trees and the ledger in db.
func WithPostgres(db *sql.DB) Option {
	return func(h *Host) {
		if db != nil {
			h.db = db
			h.ledger = NewPostgresLedger(db)
		}
	}
}

func WithLayout(l residence.Layout) Option {
	return func(h *Host) {
		h.layout = l
	}
}

func WithMonthlyQuota(q id.Amount) Option {
	return func(h *Host) {
		h.quota = q
	}
}

func WithQuotaPeriod(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.period = d
		}
	}
}

func WithQuorumPolicy(p models.QuorumPolicy) Option {
	return func(h *Host) {
		if p != nil {
			h.quorum = p
		}
	}
}

// WithClock sets the fallback clock of deployed backends.
func WithClock(clock func() time.Time) Option {
	return func(h *Host) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func New(opts ...Option) (*Host, error) {
	h := &Host{
		backends: make(map[id.Address]*service.Service),
		nonces:   make(map[id.ParticipantID]uint64),
		ledger:   NewMemoryLedger(),
		layout:   residence.DefaultLayout,
		quota:    models.DefaultMonthlyQuota,
		period:   models.DefaultQuotaPeriod,
		quorum:   models.DefaultQuorumPolicy(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.layout.Validate(); err != nil {
		return nil, err
	}
	if err := h.quorum.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// DeriveAddress returns the last 20 bytes of keccak256(deployer || nonce).
func DeriveAddress(deployer id.ParticipantID, nonce uint64) id.Address {
	raw, _ := hex.DecodeString(strings.TrimPrefix(string(deployer), "0x"))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h := sha3.NewLegacyKeccak256()
	h.Write(raw)
	h.Write(n[:])
	return id.AddressFromBytes(h.Sum(nil))
}

// Deploy creates a backend managed by deployer.
func (h *Host) Deploy(ctx context.Context, deployer id.ParticipantID) (*service.Service, error) {
	if _, err := id.ParseParticipantID(string(deployer)); err != nil {
		return nil, err
	}
	directory, err := residence.NewDirectory(h.layout)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "invalid residence layout")
	}
	state, err := models.NewState(deployer, h.quota)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var st store.Store
	var address id.Address
	if h.db != nil {
		address, err = h.deployPostgres(ctx, deployer, state)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deploy backend")
		}
		st = store.NewPostgres(h.db, address)
	} else {
		nonce := h.nonces[deployer]
		h.nonces[deployer] = nonce + 1
		address = DeriveAddress(deployer, nonce)
		st = store.NewInMemory(state)
	}

	backend := h.newBackend(address, st, directory, h.period)
	h.backends[address] = backend
	if h.logger != nil {
		h.logger.InfoContext(ctx, "backend deployed",
			"event", "backend_deployed", "log_type", "audit",
			"backend", address, "manager", deployer, "units", directory.Len())
	}
	return backend, nil
}

func (h *Host) deployPostgres(ctx context.Context, deployer id.ParticipantID, state *models.State) (id.Address, error) {
	var address id.Address
	err := tx.Run(ctx, h.db, func(ctx context.Context) error {
		q := tx.QuerierFrom(ctx, h.db)
		var nonce uint64
		if err := q.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(nonce) + 1, 0) FROM backends WHERE deployer = $1`, string(deployer)).Scan(&nonce); err != nil {
			return fmt.Errorf("next nonce: %w", err)
		}
		address = DeriveAddress(deployer, nonce)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO backends (address, deployer, nonce, blocks, floors, units_per_floor, quota_period, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, string(address), string(deployer), int64(nonce), h.layout.Blocks, h.layout.Floors,
			h.layout.UnitsPerFloor, int64(h.period), h.clock()); err != nil {
			return fmt.Errorf("insert backend: %w", err)
		}
		return store.NewPostgres(h.db, address).SaveState(ctx, state)
	})
	return address, err
}

func (h *Host) newBackend(address id.Address, st store.Store, directory *residence.Directory, period time.Duration) *service.Service {
	opts := []service.Option{
		service.WithQuorumPolicy(h.quorum),
		service.WithQuotaPeriod(period),
		service.WithClock(h.clock),
	}
	if h.logger != nil {
		opts = append(opts, service.WithLogger(h.logger))
	}
	if h.metrics != nil {
		opts = append(opts, service.WithMetrics(h.metrics))
	}
	return service.New(address, st, directory, h.ledger, opts...)
}

// Load registers every backend persisted in Postgres. No-op without a database.
func (h *Host) Load(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT address, blocks, floors, units_per_floor, quota_period FROM backends ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("load backends: %w", err)
	}
	defer rows.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	for rows.Next() {
		var address string
		var layout residence.Layout
		var period int64
		if err := rows.Scan(&address, &layout.Blocks, &layout.Floors, &layout.UnitsPerFloor, &period); err != nil {
			return fmt.Errorf("scan backend: %w", err)
		}
		directory, err := residence.NewDirectory(layout)
		if err != nil {
			return fmt.Errorf("backend %s: %w", address, err)
		}
		addr := id.Address(address)
		h.backends[addr] = h.newBackend(addr, store.NewPostgres(h.db, addr), directory, time.Duration(period))
	}
	return rows.Err()
}

// Resolve returns the backend deployed at address.
func (h *Host) Resolve(address id.Address) (*service.Service, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.backends[address]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidAddress, "no backend deployed at "+string(address))
	}
	return b, nil
}

// Backends lists deployed addresses in lexical order.
func (h *Host) Backends() []id.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]id.Address, 0, len(h.backends))
	for a := range h.backends {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Ledger exposes participant balances.
func (h *Host) Ledger() service.HostLedger {
	return h.ledger
}
