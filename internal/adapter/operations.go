package adapter

import (
	"context"

	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	id "condo/pkg/domain"
)

type (
	ResidentView = service.ResidentView
	TopicView    = service.TopicView
)

func (a *Adapter) AddResident(ctx context.Context, callerID, participant id.ParticipantID, unit id.ResidenceID) (*models.Receipt, error) {
	return a.mutate(ctx, "add_resident", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.AddResident(ctx, callerID, participant, unit)
	})
}

func (a *Adapter) RemoveResident(ctx context.Context, callerID, participant id.ParticipantID) (*models.Receipt, error) {
	return a.mutate(ctx, "remove_resident", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.RemoveResident(ctx, callerID, participant)
	})
}

func (a *Adapter) SetCounselor(ctx context.Context, callerID, participant id.ParticipantID, isCounselor bool) (*models.Receipt, error) {
	return a.mutate(ctx, "set_counselor", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.SetCounselor(ctx, callerID, participant, isCounselor)
	})
}

func (a *Adapter) AddTopic(ctx context.Context, callerID id.ParticipantID, req service.AddTopicRequest) (*models.Receipt, error) {
	return a.mutate(ctx, "add_topic", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.AddTopic(ctx, callerID, req)
	})
}

func (a *Adapter) EditTopic(ctx context.Context, callerID id.ParticipantID, title string, edit models.TopicEdit) (*models.Receipt, error) {
	return a.mutate(ctx, "edit_topic", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.EditTopic(ctx, callerID, title, edit)
	})
}

func (a *Adapter) RemoveTopic(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error) {
	return a.mutate(ctx, "remove_topic", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.RemoveTopic(ctx, callerID, title)
	})
}

func (a *Adapter) OpenVoting(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error) {
	return a.mutate(ctx, "open_voting", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.OpenVoting(ctx, callerID, title)
	})
}

func (a *Adapter) Vote(ctx context.Context, callerID id.ParticipantID, title string, option models.Option) (*models.Receipt, error) {
	return a.mutate(ctx, "vote", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.Vote(ctx, callerID, title, option)
	})
}

func (a *Adapter) CloseVoting(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error) {
	return a.mutate(ctx, "close_voting", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.CloseVoting(ctx, callerID, title)
	})
}

func (a *Adapter) PayQuota(ctx context.Context, callerID id.ParticipantID, unit id.ResidenceID, value id.Amount) (*models.Receipt, error) {
	return a.mutate(ctx, "pay_quota", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.PayQuota(ctx, callerID, unit, value)
	})
}

func (a *Adapter) Transfer(ctx context.Context, callerID id.ParticipantID, title string, amount id.Amount) (*models.Receipt, error) {
	return a.mutate(ctx, "transfer", func(ctx context.Context, b *service.Service) (*models.Receipt, error) {
		return b.Transfer(ctx, callerID, title, amount)
	})
}

func (a *Adapter) GetResident(ctx context.Context, participant id.ParticipantID) (ResidentView, error) {
	return forward(ctx, a, "get_resident", func(ctx context.Context, b *service.Service) (ResidentView, error) {
		return b.GetResident(ctx, participant)
	})
}

func (a *Adapter) GetResidents(ctx context.Context, page, size int) (models.Page[ResidentView], error) {
	return forward(ctx, a, "get_residents", func(ctx context.Context, b *service.Service) (models.Page[ResidentView], error) {
		return b.GetResidents(ctx, page, size)
	})
}

func (a *Adapter) GetTopic(ctx context.Context, title string) (TopicView, error) {
	return forward(ctx, a, "get_topic", func(ctx context.Context, b *service.Service) (TopicView, error) {
		return b.GetTopic(ctx, title)
	})
}

func (a *Adapter) GetTopics(ctx context.Context, page, size int, statuses ...models.Status) (models.Page[TopicView], error) {
	return forward(ctx, a, "get_topics", func(ctx context.Context, b *service.Service) (models.Page[TopicView], error) {
		return b.GetTopics(ctx, page, size, statuses...)
	})
}

func (a *Adapter) GetVotes(ctx context.Context, title string) ([]*models.Vote, error) {
	return forward(ctx, a, "get_votes", func(ctx context.Context, b *service.Service) ([]*models.Vote, error) {
		return b.GetVotes(ctx, title)
	})
}

func (a *Adapter) NumberOfVotes(ctx context.Context, title string) (int, error) {
	return forward(ctx, a, "number_of_votes", func(ctx context.Context, b *service.Service) (int, error) {
		return b.NumberOfVotes(ctx, title)
	})
}

func (a *Adapter) TopicExists(ctx context.Context, title string) (bool, error) {
	return forward(ctx, a, "topic_exists", func(ctx context.Context, b *service.Service) (bool, error) {
		return b.TopicExists(ctx, title)
	})
}

func (a *Adapter) GetManager(ctx context.Context) (id.ParticipantID, error) {
	return forward(ctx, a, "get_manager", func(ctx context.Context, b *service.Service) (id.ParticipantID, error) {
		return b.GetManager(ctx)
	})
}

func (a *Adapter) GetQuota(ctx context.Context) (id.Amount, error) {
	return forward(ctx, a, "get_quota", func(ctx context.Context, b *service.Service) (id.Amount, error) {
		return b.GetQuota(ctx)
	})
}

func (a *Adapter) GetTreasury(ctx context.Context) (id.Amount, error) {
	return forward(ctx, a, "get_treasury", func(ctx context.Context, b *service.Service) (id.Amount, error) {
		return b.GetTreasury(ctx)
	})
}

func (a *Adapter) ResidenceExists(ctx context.Context, unit id.ResidenceID) (bool, error) {
	return forward(ctx, a, "residence_exists", func(_ context.Context, b *service.Service) (bool, error) {
		return b.ResidenceExists(unit), nil
	})
}

func (a *Adapter) IsResident(ctx context.Context, participant id.ParticipantID) (bool, error) {
	return forward(ctx, a, "is_resident", func(ctx context.Context, b *service.Service) (bool, error) {
		return b.IsResident(ctx, participant)
	})
}

func (a *Adapter) IsCounselor(ctx context.Context, participant id.ParticipantID) (bool, error) {
	return forward(ctx, a, "is_counselor", func(ctx context.Context, b *service.Service) (bool, error) {
		return b.IsCounselor(ctx, participant)
	})
}

func (a *Adapter) IsDefaulter(ctx context.Context, participant id.ParticipantID) (bool, error) {
	return forward(ctx, a, "is_defaulter", func(ctx context.Context, b *service.Service) (bool, error) {
		return b.IsDefaulter(ctx, participant)
	})
}

func (a *Adapter) Balance(ctx context.Context, participant id.ParticipantID) (id.Amount, error) {
	return forward(ctx, a, "balance", func(ctx context.Context, b *service.Service) (id.Amount, error) {
		return b.Balance(ctx, participant)
	})
}
