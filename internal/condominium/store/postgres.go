package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"condo/internal/condominium/models"
	"condo/internal/platform/postgres"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// PostgresStore persists one backend's state tree in PostgreSQL. Rows of all
// backends share tables and are scoped by the backend column.
type PostgresStore struct {
	db      *sql.DB
	backend id.Address
}

// NewPostgres constructs a store for backend. The backend row and its state
// must already exist (see host.Deploy).
func NewPostgres(db *sql.DB, backend id.Address) *PostgresStore {
	return &PostgresStore{db: db, backend: backend}
}

// RunInTx runs fn in one serializable transaction and locks the backend's
// state row so calls on the same backend are applied one at a time.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		var one int
		err := s.q(ctx).QueryRowContext(ctx,
			`SELECT 1 FROM condo_state WHERE backend = $1 FOR UPDATE`, string(s.backend)).Scan(&one)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lock backend %s: %w", s.backend, sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock backend %s: %w", s.backend, err)
		}
		return fn(ctx)
	})
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.QuerierFrom(ctx, s.db)
}

func (s *PostgresStore) State(ctx context.Context) (*models.State, error) {
	var st models.State
	var manager string
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT manager, monthly_quota, treasury FROM condo_state WHERE backend = $1
	`, string(s.backend)).Scan(&manager, &st.MonthlyQuota, &st.Treasury)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find state: %w", err)
	}
	st.Manager = id.ParticipantID(manager)
	return &st, nil
}

// SaveState upserts so host.Deploy can create the row inside its own transaction.
func (s *PostgresStore) SaveState(ctx context.Context, state *models.State) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO condo_state (backend, manager, monthly_quota, treasury)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (backend) DO UPDATE SET
			manager = EXCLUDED.manager,
			monthly_quota = EXCLUDED.monthly_quota,
			treasury = EXCLUDED.treasury
	`, string(s.backend), string(state.Manager), state.MonthlyQuota, state.Treasury)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

const residentColumns = `participant, unit, is_counselor, last_payment_at`

func scanResident(row interface{ Scan(...any) error }) (*models.Resident, error) {
	var r models.Resident
	var participant string
	var unit int
	var paid sql.NullTime
	if err := row.Scan(&participant, &unit, &r.IsCounselor, &paid); err != nil {
		return nil, err
	}
	r.ParticipantID = id.ParticipantID(participant)
	r.Unit = id.ResidenceID(unit)
	if paid.Valid {
		t := paid.Time
		r.LastPaymentAt = &t
	}
	return &r, nil
}

func (s *PostgresStore) findResident(ctx context.Context, where string, arg any) (*models.Resident, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM condo_residents WHERE backend = $1 AND `+where+` = $2`,
		string(s.backend), arg)
	r, err := scanResident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find resident: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindResidentByParticipant(ctx context.Context, participant id.ParticipantID) (*models.Resident, error) {
	return s.findResident(ctx, "participant", string(participant))
}

func (s *PostgresStore) FindResidentByUnit(ctx context.Context, unit id.ResidenceID) (*models.Resident, error) {
	return s.findResident(ctx, "unit", int(unit))
}

func (s *PostgresStore) SaveResident(ctx context.Context, r *models.Resident) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO condo_residents (backend, participant, unit, is_counselor, last_payment_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (backend, participant) DO UPDATE SET
			unit = EXCLUDED.unit,
			is_counselor = EXCLUDED.is_counselor,
			last_payment_at = EXCLUDED.last_payment_at
	`, string(s.backend), string(r.ParticipantID), int(r.Unit), r.IsCounselor, nullTime(r.LastPaymentAt))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save resident: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteResident(ctx context.Context, participant id.ParticipantID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM condo_residents WHERE backend = $1 AND participant = $2`, string(s.backend), string(participant))
	if err != nil {
		return fmt.Errorf("delete resident: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) ListResidents(ctx context.Context) ([]*models.Resident, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+residentColumns+` FROM condo_residents WHERE backend = $1 ORDER BY unit`, string(s.backend))
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	defer rows.Close()
	var out []*models.Resident
	for rows.Next() {
		r, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resident: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const topicColumns = `title, description, category, amount, responsible, status, created_at, voting_started_at, voting_ended_at`

func scanTopic(row interface{ Scan(...any) error }) (*models.Topic, error) {
	var t models.Topic
	var category, status, responsible string
	var started, ended sql.NullTime
	if err := row.Scan(&t.Title, &t.Description, &category, &t.Amount, &responsible, &status,
		&t.CreatedAt, &started, &ended); err != nil {
		return nil, err
	}
	t.Category = models.Category(category)
	t.Status = models.Status(status)
	t.Responsible = id.ParticipantID(responsible)
	if started.Valid {
		v := started.Time
		t.VotingStartedAt = &v
	}
	if ended.Valid {
		v := ended.Time
		t.VotingEndedAt = &v
	}
	return &t, nil
}

func (s *PostgresStore) FindTopic(ctx context.Context, title string) (*models.Topic, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+topicColumns+` FROM condo_topics WHERE backend = $1 AND title = $2`, string(s.backend), title)
	t, err := scanTopic(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find topic: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) CreateTopic(ctx context.Context, t *models.Topic) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO condo_topics (backend, title, description, category, amount, responsible, status,
			created_at, voting_started_at, voting_ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, string(s.backend), t.Title, t.Description, string(t.Category), t.Amount, string(t.Responsible),
		string(t.Status), t.CreatedAt, nullTime(t.VotingStartedAt), nullTime(t.VotingEndedAt))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTopic(ctx context.Context, t *models.Topic) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE condo_topics SET
			description = $3, amount = $4, responsible = $5, status = $6,
			voting_started_at = $7, voting_ended_at = $8
		WHERE backend = $1 AND title = $2
	`, string(s.backend), t.Title, t.Description, t.Amount, string(t.Responsible), string(t.Status),
		nullTime(t.VotingStartedAt), nullTime(t.VotingEndedAt))
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return requireAffected(res)
}

// DeleteTopic relies on the votes foreign key cascade.
func (s *PostgresStore) DeleteTopic(ctx context.Context, title string) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM condo_topics WHERE backend = $1 AND title = $2`, string(s.backend), title)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) ListTopics(ctx context.Context, statuses ...models.Status) ([]*models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM condo_topics WHERE backend = $1`
	args := []any{string(s.backend)}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query += ` AND status = ANY($2::text[])`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY title`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()
	var out []*models.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateVote(ctx context.Context, v *models.Vote) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO condo_votes (backend, title, unit, participant, option, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, string(s.backend), v.TopicTitle, int(v.Unit), string(v.Participant), string(v.Option), v.CastAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVotes(ctx context.Context, title string) ([]*models.Vote, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT unit, participant, option, cast_at FROM condo_votes
		WHERE backend = $1 AND title = $2 ORDER BY unit
	`, string(s.backend), title)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()
	var out []*models.Vote
	for rows.Next() {
		v := models.Vote{TopicTitle: title}
		var unit int
		var participant, option string
		if err := rows.Scan(&unit, &participant, &option, &v.CastAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Unit = id.ResidenceID(unit)
		v.Participant = id.ParticipantID(participant)
		v.Option = models.Option(option)
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountVotes(ctx context.Context, title string) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM condo_votes WHERE backend = $1 AND title = $2`, string(s.backend), title).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
