package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
)

const (
	manager = id.ParticipantID("0x00000000000000000000000000000000000000f1")
	alice   = id.ParticipantID("0x00000000000000000000000000000000000000a1")
	bob     = id.ParticipantID("0x00000000000000000000000000000000000000b1")
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory(&models.State{Manager: manager, MonthlyQuota: models.DefaultMonthlyQuota})
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newTopic(title string) *models.Topic {
	return &models.Topic{
		Title:       title,
		Category:    models.CategoryDecision,
		Responsible: manager,
		Status:      models.StatusIdle,
		CreatedAt:   time.Now(),
	}
}

// TestResidents verifies the participant and unit indexes stay consistent.
func (s *MemoryStoreSuite) TestResidents() {
	s.Run("finds by participant and unit", func() {
		s.Require().NoError(s.store.SaveResident(s.ctx, &models.Resident{ParticipantID: alice, Unit: 1101}))

		byParticipant, err := s.store.FindResidentByParticipant(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(id.ResidenceID(1101), byParticipant.Unit)

		byUnit, err := s.store.FindResidentByUnit(s.ctx, 1101)
		s.Require().NoError(err)
		s.Equal(alice, byUnit.ParticipantID)
	})

	s.Run("moving a participant frees the old unit", func() {
		s.Require().NoError(s.store.SaveResident(s.ctx, &models.Resident{ParticipantID: alice, Unit: 1202}))

		_, err := s.store.FindResidentByUnit(s.ctx, 1101)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects a unit held by someone else", func() {
		err := s.store.SaveResident(s.ctx, &models.Resident{ParticipantID: bob, Unit: 1202})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("lists ordered by unit", func() {
		s.Require().NoError(s.store.SaveResident(s.ctx, &models.Resident{ParticipantID: bob, Unit: 1101}))
		list, err := s.store.ListResidents(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(bob, list[0].ParticipantID)
		s.Equal(alice, list[1].ParticipantID)
	})

	s.Run("returned records are copies", func() {
		r, err := s.store.FindResidentByParticipant(s.ctx, alice)
		s.Require().NoError(err)
		r.IsCounselor = true

		again, err := s.store.FindResidentByParticipant(s.ctx, alice)
		s.Require().NoError(err)
		s.False(again.IsCounselor)
	})

	s.Run("delete unknown returns ErrNotFound", func() {
		s.ErrorIs(s.store.DeleteResident(s.ctx, manager), sentinel.ErrNotFound)
	})
}

// TestTopicsAndVotes verifies uniqueness keys and cascade deletion.
func (s *MemoryStoreSuite) TestTopicsAndVotes() {
	s.Require().NoError(s.store.CreateTopic(s.ctx, s.newTopic("b")))
	s.Require().NoError(s.store.CreateTopic(s.ctx, s.newTopic("a")))

	s.Run("duplicate title conflicts", func() {
		s.ErrorIs(s.store.CreateTopic(s.ctx, s.newTopic("a")), sentinel.ErrConflict)
	})

	s.Run("lists ordered by title and filters by status", func() {
		all, err := s.store.ListTopics(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal("a", all[0].Title)

		voting, err := s.store.ListTopics(s.ctx, models.StatusVoting)
		s.Require().NoError(err)
		s.Empty(voting)
	})

	s.Run("one vote per unit", func() {
		s.Require().NoError(s.store.CreateVote(s.ctx, &models.Vote{TopicTitle: "a", Unit: 1101, Option: models.OptionYes}))
		err := s.store.CreateVote(s.ctx, &models.Vote{TopicTitle: "a", Unit: 1101, Option: models.OptionNo})
		s.ErrorIs(err, sentinel.ErrConflict)

		n, err := s.store.CountVotes(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("deleting a topic drops its votes", func() {
		s.Require().NoError(s.store.DeleteTopic(s.ctx, "a"))
		n, err := s.store.CountVotes(s.ctx, "a")
		s.Require().NoError(err)
		s.Zero(n)
	})
}

// TestRunInTx verifies failed transactions leave no trace.
func (s *MemoryStoreSuite) TestRunInTx() {
	s.Run("rolls back every write on error", func() {
		boom := errors.New("boom")
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			st, err := s.store.State(ctx)
			s.Require().NoError(err)
			st.Treasury = id.NewAmount(100)
			s.Require().NoError(s.store.SaveState(ctx, st))
			s.Require().NoError(s.store.SaveResident(ctx, &models.Resident{ParticipantID: alice, Unit: 1101}))
			s.Require().NoError(s.store.CreateTopic(ctx, s.newTopic("t")))
			return boom
		})
		s.ErrorIs(err, boom)

		st, err := s.store.State(s.ctx)
		s.Require().NoError(err)
		s.Zero(st.Treasury)
		_, err = s.store.FindResidentByParticipant(s.ctx, alice)
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindTopic(s.ctx, "t")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("commits on success and nests", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.store.RunInTx(ctx, func(ctx context.Context) error {
				return s.store.CreateTopic(ctx, s.newTopic("t"))
			})
		})
		s.Require().NoError(err)
		_, err = s.store.FindTopic(s.ctx, "t")
		s.NoError(err)
	})
}
