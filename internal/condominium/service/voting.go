package service

import (
	"context"
	"errors"
	"strings"

	"condo/internal/condominium/metrics"
	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
)

// OpenVoting moves an IDLE topic to VOTING. Manager only.
func (s *Service) OpenVoting(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error) {
	return s.mutate(ctx, "open_voting", func(ctx context.Context, t *txn) error {
		c, _, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireManager(c); err != nil {
			return err
		}
		topic, err := s.findTopic(ctx, strings.TrimSpace(title))
		if err != nil {
			return err
		}
		if err := topic.CanOpen(); err != nil {
			return err
		}
		topic.ApplyOpen(t.now)
		if err := s.store.UpdateTopic(ctx, topic); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to open voting")
		}
		t.emit(models.TopicChanged{Title: topic.Title, Status: topic.Status})
		t.audit("voting_opened", "caller", callerID, "title", topic.Title)
		return nil
	})
}

// Vote records the caller's unit ballot. The manager and residents in good
// standing may vote; a manager without a unit votes for the management seat.
func (s *Service) Vote(ctx context.Context, callerID id.ParticipantID, title string, option models.Option) (*models.Receipt, error) {
	return s.mutate(ctx, "vote", func(ctx context.Context, t *txn) error {
		c, _, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireGoodStanding(c, t.now); err != nil {
			return err
		}
		topic, err := s.findTopic(ctx, strings.TrimSpace(title))
		if err != nil {
			return err
		}
		if err := topic.CanVote(); err != nil {
			return err
		}
		if option == models.OptionEmpty || option == "" {
			return dErrors.New(dErrors.CodeEmptyOption, "the option cannot be EMPTY")
		}

		unit := id.ManagementSeat
		if c.resident != nil {
			unit = c.resident.Unit
		}
		vote := &models.Vote{
			TopicTitle:  topic.Title,
			Unit:        unit,
			Participant: callerID,
			Option:      option,
			CastAt:      t.now,
		}
		if err := s.store.CreateVote(ctx, vote); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeDuplicateVote, "residence %d already voted on %q", unit, topic.Title)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
		}
		t.count(func(m *metrics.Metrics) {
			m.VotesCast.WithLabelValues(string(s.address), string(option)).Inc()
		})
		t.audit("vote_cast", "caller", callerID, "title", topic.Title, "unit", unit)
		return nil
	})
}

// CloseVoting tallies a VOTING topic and applies its effect when approved.
// Manager only. Fails QuorumNotMet, leaving the topic in VOTING, when too few
// units voted.
func (s *Service) CloseVoting(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error) {
	return s.mutate(ctx, "close_voting", func(ctx context.Context, t *txn) error {
		c, state, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireManager(c); err != nil {
			return err
		}
		topic, err := s.findTopic(ctx, strings.TrimSpace(title))
		if err != nil {
			return err
		}
		if err := topic.CanClose(); err != nil {
			return err
		}

		votes, err := s.store.ListVotes(ctx, topic.Title)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load votes")
		}
		tally := models.Count(votes)
		required := s.quorum.Required(topic.Category, s.directory.Len())
		if tally.Total() < required {
			return dErrors.Newf(dErrors.CodeQuorumNotMet,
				"quorum not met: need ≥%d unit votes, have %d", required, tally.Total())
		}

		approved := tally.Approved()
		topic.ApplyClose(approved, t.now)
		if err := s.store.UpdateTopic(ctx, topic); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close voting")
		}
		t.emit(models.TopicChanged{Title: topic.Title, Status: topic.Status})

		if approved {
			if err := s.applyApproval(ctx, t, state, topic); err != nil {
				return err
			}
		}
		t.count(func(m *metrics.Metrics) {
			m.VotingsClosed.WithLabelValues(string(s.address), string(topic.Category), string(topic.Status)).Inc()
		})
		t.audit("voting_closed", "caller", callerID, "title", topic.Title,
			"status", topic.Status, "yes", tally.Yes, "no", tally.No, "abstention", tally.Abstention)
		return nil
	})
}

// applyApproval performs the category effect of an approved topic. SPENT
// topics wait for Transfer; DECISION topics have no effect.
func (s *Service) applyApproval(ctx context.Context, t *txn, state *models.State, topic *models.Topic) error {
	switch topic.Category {
	case models.CategoryChangeManager:
		state.Manager = topic.Responsible
		if err := s.store.SaveState(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to change manager")
		}
		t.emit(models.ManagerChanged{Manager: state.Manager})
		t.audit("manager_changed", "manager", state.Manager, "title", topic.Title)
	case models.CategoryChangeQuota:
		state.MonthlyQuota = topic.Amount
		if err := s.store.SaveState(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to change quota")
		}
		t.emit(models.QuotaChanged{Amount: state.MonthlyQuota})
		t.audit("quota_changed", "amount", state.MonthlyQuota, "title", topic.Title)
	}
	return nil
}
