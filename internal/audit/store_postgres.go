package audit

import (
	"context"
	"database/sql"
	"fmt"

	"condo/internal/condominium/models"
	"condo/internal/events"
	"condo/pkg/platform/tx"
)

// Postgres appends to condo_event_log. The full encoded envelope is stored
// so payload types survive a round trip.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Append joins the caller's transaction when ctx carries one. Each insert is
// idempotent on the event id, so a retried publish is harmless.
func (s *Postgres) Append(ctx context.Context, evts ...models.Event) error {
	q := tx.QuerierFrom(ctx, s.db)
	for _, e := range evts {
		data, err := events.Encode(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO condo_event_log (id, backend, type, occurred_at, envelope)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, e.ID.String(), string(e.Backend), string(e.Type), e.Timestamp, string(data)); err != nil {
			return fmt.Errorf("append event %s: %w", e.ID, err)
		}
	}
	return nil
}

const eventFilter = `($1 = '' OR backend = $1) AND ($2 = '' OR type = $2)`

func (s *Postgres) List(ctx context.Context, q Query) (models.Page[models.Event], error) {
	out := models.Page[models.Event]{Items: []models.Event{}, Page: q.Page, Size: q.Size}
	backend, typ := string(q.Backend), string(q.Type)

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM condo_event_log WHERE `+eventFilter, backend, typ).Scan(&out.Total); err != nil {
		return out, fmt.Errorf("count events: %w", err)
	}
	if q.Page-1 >= (out.Total+q.Size-1)/q.Size {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT envelope FROM condo_event_log WHERE `+eventFilter+`
		ORDER BY seq DESC LIMIT $3 OFFSET $4
	`, backend, typ, q.Size, (q.Page-1)*q.Size)
	if err != nil {
		return out, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return out, fmt.Errorf("scan event: %w", err)
		}
		e, err := events.Decode(data)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, e)
	}
	return out, rows.Err()
}
