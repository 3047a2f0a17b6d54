// Package store persists the state tree of one backend: its singleton state,
// residents, topics and votes.
//
// Every store is scoped to a single backend. Writes performed inside RunInTx
// commit together or not at all, which gives the host's serialized
// all-or-nothing call semantics. Stores report storage facts with sentinel
// errors; services translate them into domain codes.
package store

import (
	"context"

	"condo/internal/condominium/models"
	id "condo/pkg/domain"
)

// Store is the state tree of one backend.
type Store interface {
	// RunInTx runs fn with exclusive write access. Any error returned by fn
	// discards every write fn made.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	State(ctx context.Context) (*models.State, error)
	SaveState(ctx context.Context, state *models.State) error

	FindResidentByParticipant(ctx context.Context, participant id.ParticipantID) (*models.Resident, error)
	FindResidentByUnit(ctx context.Context, unit id.ResidenceID) (*models.Resident, error)
	// SaveResident upserts by participant. The caller guarantees the unit is
	// not held by another participant.
	SaveResident(ctx context.Context, resident *models.Resident) error
	DeleteResident(ctx context.Context, participant id.ParticipantID) error
	// ListResidents returns residents ordered by unit.
	ListResidents(ctx context.Context) ([]*models.Resident, error)

	FindTopic(ctx context.Context, title string) (*models.Topic, error)
	// CreateTopic returns sentinel.ErrConflict when the title is taken.
	CreateTopic(ctx context.Context, topic *models.Topic) error
	UpdateTopic(ctx context.Context, topic *models.Topic) error
	// DeleteTopic removes the topic and its votes.
	DeleteTopic(ctx context.Context, title string) error
	// ListTopics returns topics ordered by title, restricted to statuses when
	// any are given.
	ListTopics(ctx context.Context, statuses ...models.Status) ([]*models.Topic, error)

	// CreateVote returns sentinel.ErrConflict when the unit already voted.
	CreateVote(ctx context.Context, vote *models.Vote) error
	// ListVotes returns a topic's votes ordered by unit.
	ListVotes(ctx context.Context, title string) ([]*models.Vote, error)
	CountVotes(ctx context.Context, title string) (int, error)
}
