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

// AddTopicRequest carries the fields of a new topic. An empty Responsible
// defaults to the caller.
type AddTopicRequest struct {
	Title       string
	Description string
	Category    models.Category
	Amount      id.Amount
	Responsible id.ParticipantID
}

// AddTopic creates an IDLE topic. The manager and residents in good standing
// may propose.
func (s *Service) AddTopic(ctx context.Context, callerID id.ParticipantID, req AddTopicRequest) (*models.Receipt, error) {
	return s.mutate(ctx, "add_topic", func(ctx context.Context, t *txn) error {
		c, _, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireGoodStanding(c, t.now); err != nil {
			return err
		}
		responsible := req.Responsible
		if responsible.IsNil() {
			responsible = callerID
		} else if err := validParticipant(responsible); err != nil {
			return err
		}
		topic, err := models.NewTopic(req.Title, req.Description, req.Category, req.Amount, responsible, t.now)
		if err != nil {
			return err
		}
		if err := s.store.CreateTopic(ctx, topic); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateTopic, "topic already exists: "+topic.Title)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create topic")
		}
		t.emit(models.TopicChanged{Title: topic.Title, Status: topic.Status})
		t.count(func(m *metrics.Metrics) {
			m.TopicsCreated.WithLabelValues(string(s.address), string(topic.Category)).Inc()
		})
		t.audit("topic_added", "caller", callerID, "title", topic.Title, "category", topic.Category)
		return nil
	})
}

// EditTopic updates an IDLE topic. Empty or zero fields leave the current
// values. Manager only.
func (s *Service) EditTopic(ctx context.Context, callerID id.ParticipantID, title string, edit models.TopicEdit) (*models.Receipt, error) {
	return s.mutate(ctx, "edit_topic", func(ctx context.Context, t *txn) error {
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
		if !edit.Responsible.IsNil() {
			if err := validParticipant(edit.Responsible); err != nil {
				return err
			}
		}
		if err := topic.CanEdit(edit); err != nil {
			return err
		}
		topic.ApplyEdit(edit)
		if err := s.store.UpdateTopic(ctx, topic); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update topic")
		}
		t.emit(models.TopicChanged{Title: topic.Title, Status: topic.Status})
		t.audit("topic_edited", "caller", callerID, "title", topic.Title)
		return nil
	})
}

// RemoveTopic deletes an IDLE topic. Manager only.
func (s *Service) RemoveTopic(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error) {
	return s.mutate(ctx, "remove_topic", func(ctx context.Context, t *txn) error {
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
		if err := topic.CanRemove(); err != nil {
			return err
		}
		if err := s.store.DeleteTopic(ctx, topic.Title); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove topic")
		}
		t.emit(models.TopicChanged{Title: topic.Title, Status: topic.Status, Removed: true})
		t.audit("topic_removed", "caller", callerID, "title", topic.Title)
		return nil
	})
}
