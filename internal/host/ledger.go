package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/tx"
)

// MemoryLedger keeps participant balances in a map.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[id.ParticipantID]id.Amount
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[id.ParticipantID]id.Amount)}
}

func (l *MemoryLedger) Credit(_ context.Context, participant id.ParticipantID, amount id.Amount) error {
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "credit must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, ok := l.balances[participant].Add(amount)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidArgument, "balance overflow")
	}
	l.balances[participant] = sum
	return nil
}

func (l *MemoryLedger) Balance(_ context.Context, participant id.ParticipantID) (id.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[participant], nil
}

// PostgresLedger stores balances in host_ledger. Credits join the caller's
// transaction when one is in ctx, so a transfer and its credit commit together.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Credit(ctx context.Context, participant id.ParticipantID, amount id.Amount) error {
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "credit must be positive")
	}
	_, err := tx.QuerierFrom(ctx, l.db).ExecContext(ctx, `
		INSERT INTO host_ledger (participant, balance) VALUES ($1, $2)
		ON CONFLICT (participant) DO UPDATE SET balance = host_ledger.balance + EXCLUDED.balance
	`, string(participant), amount)
	if err != nil {
		return fmt.Errorf("credit ledger: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Balance(ctx context.Context, participant id.ParticipantID) (id.Amount, error) {
	var balance id.Amount
	err := tx.QuerierFrom(ctx, l.db).QueryRowContext(ctx,
		`SELECT balance FROM host_ledger WHERE participant = $1`, string(participant)).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.Amount{}, nil
		}
		return id.Amount{}, fmt.Errorf("read ledger: %w", err)
	}
	return balance, nil
}
