package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
)

type voteKey struct {
	title string
	unit  id.ResidenceID
}

type txMarker struct{ store *InMemory }

// InMemory keeps a backend's state tree in maps guarded by one RWMutex.
// RunInTx holds the write lock for the whole call and restores a snapshot
// when fn fails.
type InMemory struct {
	mu        sync.RWMutex
	state     *models.State
	residents map[id.ParticipantID]*models.Resident
	units     map[id.ResidenceID]id.ParticipantID
	topics    map[string]*models.Topic
	votes     map[voteKey]*models.Vote
}

// NewInMemory returns a store seeded with the deploy-time state.
func NewInMemory(state *models.State) *InMemory {
	return &InMemory{
		state:     state.Clone(),
		residents: make(map[id.ParticipantID]*models.Resident),
		units:     make(map[id.ResidenceID]id.ParticipantID),
		topics:    make(map[string]*models.Topic),
		votes:     make(map[voteKey]*models.Vote),
	}
}

type snapshot struct {
	state     *models.State
	residents map[id.ParticipantID]*models.Resident
	units     map[id.ResidenceID]id.ParticipantID
	topics    map[string]*models.Topic
	votes     map[voteKey]*models.Vote
}

// Stored values are replaced, never mutated in place, so shallow map copies
// are enough to restore.
func (s *InMemory) snapshot() snapshot {
	return snapshot{
		state:     s.state,
		residents: maps.Clone(s.residents),
		units:     maps.Clone(s.units),
		topics:    maps.Clone(s.topics),
		votes:     maps.Clone(s.votes),
	}
}

func (s *InMemory) restore(snap snapshot) {
	s.state = snap.state
	s.residents = snap.residents
	s.units = snap.units
	s.topics = snap.topics
	s.votes = snap.votes
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()
	return fn(context.WithValue(ctx, txMarker{s}, true))
}

func (s *InMemory) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{s}).(bool)
	return v
}

func (s *InMemory) read(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *InMemory) write(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *InMemory) State(ctx context.Context) (*models.State, error) {
	defer s.read(ctx)()
	return s.state.Clone(), nil
}

func (s *InMemory) SaveState(ctx context.Context, state *models.State) error {
	defer s.write(ctx)()
	s.state = state.Clone()
	return nil
}

func (s *InMemory) FindResidentByParticipant(ctx context.Context, participant id.ParticipantID) (*models.Resident, error) {
	defer s.read(ctx)()
	r, ok := s.residents[participant]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) FindResidentByUnit(ctx context.Context, unit id.ResidenceID) (*models.Resident, error) {
	defer s.read(ctx)()
	p, ok := s.units[unit]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.residents[p].Clone(), nil
}

func (s *InMemory) SaveResident(ctx context.Context, resident *models.Resident) error {
	defer s.write(ctx)()
	if holder, ok := s.units[resident.Unit]; ok && holder != resident.ParticipantID {
		return sentinel.ErrConflict
	}
	if prev, ok := s.residents[resident.ParticipantID]; ok && prev.Unit != resident.Unit {
		delete(s.units, prev.Unit)
	}
	s.residents[resident.ParticipantID] = resident.Clone()
	s.units[resident.Unit] = resident.ParticipantID
	return nil
}

func (s *InMemory) DeleteResident(ctx context.Context, participant id.ParticipantID) error {
	defer s.write(ctx)()
	r, ok := s.residents[participant]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.residents, participant)
	delete(s.units, r.Unit)
	return nil
}

func (s *InMemory) ListResidents(ctx context.Context) ([]*models.Resident, error) {
	defer s.read(ctx)()
	out := make([]*models.Resident, 0, len(s.residents))
	for _, r := range s.residents {
		out = append(out, r.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Resident) int { return cmp.Compare(a.Unit, b.Unit) })
	return out, nil
}

func (s *InMemory) FindTopic(ctx context.Context, title string) (*models.Topic, error) {
	defer s.read(ctx)()
	t, ok := s.topics[title]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *InMemory) CreateTopic(ctx context.Context, topic *models.Topic) error {
	defer s.write(ctx)()
	if _, ok := s.topics[topic.Title]; ok {
		return sentinel.ErrConflict
	}
	s.topics[topic.Title] = topic.Clone()
	return nil
}

func (s *InMemory) UpdateTopic(ctx context.Context, topic *models.Topic) error {
	defer s.write(ctx)()
	if _, ok := s.topics[topic.Title]; !ok {
		return sentinel.ErrNotFound
	}
	s.topics[topic.Title] = topic.Clone()
	return nil
}

func (s *InMemory) DeleteTopic(ctx context.Context, title string) error {
	defer s.write(ctx)()
	if _, ok := s.topics[title]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.topics, title)
	for k := range s.votes {
		if k.title == title {
			delete(s.votes, k)
		}
	}
	return nil
}

func (s *InMemory) ListTopics(ctx context.Context, statuses ...models.Status) ([]*models.Topic, error) {
	defer s.read(ctx)()
	out := make([]*models.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		if len(statuses) > 0 && !slices.Contains(statuses, t.Status) {
			continue
		}
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Topic) int { return cmp.Compare(a.Title, b.Title) })
	return out, nil
}

func (s *InMemory) CreateVote(ctx context.Context, vote *models.Vote) error {
	defer s.write(ctx)()
	k := voteKey{title: vote.TopicTitle, unit: vote.Unit}
	if _, ok := s.votes[k]; ok {
		return sentinel.ErrConflict
	}
	v := *vote
	s.votes[k] = &v
	return nil
}

func (s *InMemory) ListVotes(ctx context.Context, title string) ([]*models.Vote, error) {
	defer s.read(ctx)()
	var out []*models.Vote
	for k, v := range s.votes {
		if k.title == title {
			c := *v
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.Vote) int { return cmp.Compare(a.Unit, b.Unit) })
	return out, nil
}

func (s *InMemory) CountVotes(ctx context.Context, title string) (int, error) {
	defer s.read(ctx)()
	n := 0
	for k := range s.votes {
		if k.title == title {
			n++
		}
	}
	return n, nil
}
