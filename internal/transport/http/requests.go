package httptransport

import (
	"strings"

	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
)

// Amounts travel as decimal strings; they exceed the float64 integer range.

type upgradeRequest struct {
	Address string `json:"address"`

	address id.Address
}

func (r *upgradeRequest) Validate() error {
	addr, err := id.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.address = addr
	return nil
}

type addResidentRequest struct {
	Participant string         `json:"participant"`
	Unit        id.ResidenceID `json:"unit"`

	participant id.ParticipantID
}

func (r *addResidentRequest) Validate() error {
	p, err := id.ParseParticipantID(r.Participant)
	if err != nil {
		return err
	}
	r.participant = p
	return nil
}

type setCounselorRequest struct {
	IsCounselor bool `json:"is_counselor"`
}

func (r *setCounselorRequest) Validate() error { return nil }

type addTopicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Responsible string `json:"responsible"`

	parsed service.AddTopicRequest
}

func (r *addTopicRequest) Validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "title is required")
	}
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	amount, err := optionalAmount(r.Amount)
	if err != nil {
		return err
	}
	var responsible id.ParticipantID
	if strings.TrimSpace(r.Responsible) != "" {
		if responsible, err = id.ParseParticipantID(r.Responsible); err != nil {
			return err
		}
	}
	r.parsed = service.AddTopicRequest{
		Title:       title,
		Description: r.Description,
		Category:    category,
		Amount:      amount,
		Responsible: responsible,
	}
	return nil
}

type editTopicRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Responsible string `json:"responsible"`

	edit models.TopicEdit
}

func (r *editTopicRequest) Validate() error {
	amount, err := optionalAmount(r.Amount)
	if err != nil {
		return err
	}
	r.edit = models.TopicEdit{Description: r.Description, Amount: amount}
	if strings.TrimSpace(r.Responsible) != "" {
		if r.edit.Responsible, err = id.ParseParticipantID(r.Responsible); err != nil {
			return err
		}
	}
	return nil
}

type voteRequest struct {
	Option string `json:"option"`

	option models.Option
}

func (r *voteRequest) Validate() error {
	o, err := models.ParseOption(r.Option)
	if err != nil {
		return err
	}
	r.option = o
	return nil
}

type transferRequest struct {
	Amount string `json:"amount"`

	amount id.Amount
}

func (r *transferRequest) Validate() error {
	a, err := id.ParseAmount(r.Amount)
	if err != nil {
		return err
	}
	r.amount = a
	return nil
}

type payQuotaRequest struct {
	Unit  id.ResidenceID `json:"unit"`
	Value string         `json:"value"`

	value id.Amount
}

func (r *payQuotaRequest) Validate() error {
	v, err := id.ParseAmount(r.Value)
	if err != nil {
		return err
	}
	r.value = v
	return nil
}

func optionalAmount(s string) (id.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return id.Amount{}, nil
	}
	return id.ParseAmount(s)
}

type stateResponse struct {
	Manager  id.ParticipantID `json:"manager"`
	Quota    string           `json:"monthly_quota"`
	Treasury string           `json:"treasury"`
}

type implResponse struct {
	Owner   id.ParticipantID `json:"owner"`
	Address id.Address       `json:"address"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type balanceResponse struct {
	Participant id.ParticipantID `json:"participant"`
	Balance     string           `json:"balance"`
}

type standingResponse struct {
	Participant id.ParticipantID `json:"participant"`
	IsResident  bool             `json:"is_resident"`
	IsCounselor bool             `json:"is_counselor"`
	IsDefaulter bool             `json:"is_defaulter"`
}
