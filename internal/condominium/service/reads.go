package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
)

// MaxPageSize bounds every paginated listing.
const MaxPageSize = 100

// ResidentView is a resident with its derived dues standing.
type ResidentView struct {
	*models.Resident
	NextPaymentDue *time.Time `json:"next_payment_due,omitempty"`
	IsDefaulter    bool       `json:"is_defaulter"`
}

// TopicView is a topic with its current vote count.
type TopicView struct {
	*models.Topic
	Votes int `json:"votes"`
}

func (s *Service) view(r *models.Resident, now time.Time) ResidentView {
	return ResidentView{
		Resident:       r,
		NextPaymentDue: r.NextPaymentDue(s.period),
		IsDefaulter:    r.IsDefaulter(now, s.period),
	}
}

// Paginate returns the 1-based page of items. Pages past the end are empty.
func Paginate[T any](items []T, page, size int) (models.Page[T], error) {
	if page < 1 {
		return models.Page[T]{}, dErrors.New(dErrors.CodeInvalidArgument, "page must be 1 or greater")
	}
	if size < 1 || size > MaxPageSize {
		return models.Page[T]{}, dErrors.Newf(dErrors.CodeInvalidArgument, "page size must be between 1 and %d", MaxPageSize)
	}
	out := models.Page[T]{Items: []T{}, Total: len(items), Page: page, Size: size}
	// compare in pages before multiplying so a huge page cannot overflow
	if page-1 >= (len(items)+size-1)/size {
		return out, nil
	}
	start := (page - 1) * size
	out.Items = items[start:min(start+size, len(items))]
	return out, nil
}

// GetResident returns the resident record of participant.
func (s *Service) GetResident(ctx context.Context, participant id.ParticipantID) (ResidentView, error) {
	r, err := s.store.FindResidentByParticipant(ctx, participant)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ResidentView{}, dErrors.New(dErrors.CodeNotFound, "the resident does not exist")
		}
		return ResidentView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
	}
	return s.view(r, s.now(ctx)), nil
}

// GetResidents lists residents ordered by unit.
func (s *Service) GetResidents(ctx context.Context, page, size int) (models.Page[ResidentView], error) {
	list, err := s.store.ListResidents(ctx)
	if err != nil {
		return models.Page[ResidentView]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list residents")
	}
	now := s.now(ctx)
	views := make([]ResidentView, len(list))
	for i, r := range list {
		views[i] = s.view(r, now)
	}
	return Paginate(views, page, size)
}

// GetTopic returns a topic with its vote count.
func (s *Service) GetTopic(ctx context.Context, title string) (TopicView, error) {
	t, err := s.findTopic(ctx, strings.TrimSpace(title))
	if err != nil {
		return TopicView{}, err
	}
	n, err := s.store.CountVotes(ctx, t.Title)
	if err != nil {
		return TopicView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
	}
	return TopicView{Topic: t, Votes: n}, nil
}

// GetTopics lists topics ordered by title, optionally restricted to statuses.
func (s *Service) GetTopics(ctx context.Context, page, size int, statuses ...models.Status) (models.Page[TopicView], error) {
	list, err := s.store.ListTopics(ctx, statuses...)
	if err != nil {
		return models.Page[TopicView]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list topics")
	}
	p, err := Paginate(list, page, size)
	if err != nil {
		return models.Page[TopicView]{}, err
	}
	out := models.Page[TopicView]{Items: make([]TopicView, 0, len(p.Items)), Total: p.Total, Page: p.Page, Size: p.Size}
	for _, t := range p.Items {
		n, err := s.store.CountVotes(ctx, t.Title)
		if err != nil {
			return models.Page[TopicView]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
		}
		out.Items = append(out.Items, TopicView{Topic: t, Votes: n})
	}
	return out, nil
}

// GetVotes lists a topic's ballots ordered by unit.
func (s *Service) GetVotes(ctx context.Context, title string) ([]*models.Vote, error) {
	t, err := s.findTopic(ctx, strings.TrimSpace(title))
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, t.Title)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list votes")
	}
	if votes == nil {
		votes = []*models.Vote{}
	}
	return votes, nil
}

// NumberOfVotes returns how many units voted on a topic.
func (s *Service) NumberOfVotes(ctx context.Context, title string) (int, error) {
	v, err := s.GetTopic(ctx, title)
	if err != nil {
		return 0, err
	}
	return v.Votes, nil
}

// TopicExists reports whether a topic with title exists.
func (s *Service) TopicExists(ctx context.Context, title string) (bool, error) {
	_, err := s.findTopic(ctx, strings.TrimSpace(title))
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) state(ctx context.Context) (*models.State, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load backend state")
	}
	return st, nil
}

// GetManager returns the current manager.
func (s *Service) GetManager(ctx context.Context) (id.ParticipantID, error) {
	st, err := s.state(ctx)
	if err != nil {
		return "", err
	}
	return st.Manager, nil
}

// GetQuota returns the monthly quota.
func (s *Service) GetQuota(ctx context.Context) (id.Amount, error) {
	st, err := s.state(ctx)
	if err != nil {
		return id.Amount{}, err
	}
	return st.MonthlyQuota, nil
}

// GetTreasury returns the treasury balance.
func (s *Service) GetTreasury(ctx context.Context) (id.Amount, error) {
	st, err := s.state(ctx)
	if err != nil {
		return id.Amount{}, err
	}
	return st.Treasury, nil
}

// ResidenceExists reports whether unit is in the directory.
func (s *Service) ResidenceExists(unit id.ResidenceID) bool {
	return s.directory.Exists(unit)
}

// IsResident reports whether participant is registered.
func (s *Service) IsResident(ctx context.Context, participant id.ParticipantID) (bool, error) {
	_, err := s.GetResident(ctx, participant)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

// IsCounselor reports whether participant is a registered counselor.
func (s *Service) IsCounselor(ctx context.Context, participant id.ParticipantID) (bool, error) {
	v, err := s.GetResident(ctx, participant)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.IsCounselor, nil
}

// IsDefaulter reports whether participant's unit is behind on dues.
// Fails NotAResident for unregistered participants.
func (s *Service) IsDefaulter(ctx context.Context, participant id.ParticipantID) (bool, error) {
	v, err := s.GetResident(ctx, participant)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, dErrors.New(dErrors.CodeNotAResident, "the participant is not a resident")
	}
	if err != nil {
		return false, err
	}
	return v.IsDefaulter, nil
}

// Balance returns participant's host ledger balance.
func (s *Service) Balance(ctx context.Context, participant id.ParticipantID) (id.Amount, error) {
	b, err := s.ledger.Balance(ctx, participant)
	if err != nil {
		return id.Amount{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	return b, nil
}
