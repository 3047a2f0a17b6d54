package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"condo/internal/audit"
	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/httputil"
	pstrings "condo/pkg/platform/strings"
	"condo/pkg/requestcontext"
)

const defaultPageSize = 20

// Condominium is the call surface the handlers drive; the upgrade adapter
// implements it.
type Condominium interface {
	Owner() id.ParticipantID
	GetImplAddress() id.Address
	Upgrade(ctx context.Context, callerID id.ParticipantID, address id.Address) error

	AddResident(ctx context.Context, callerID, participant id.ParticipantID, unit id.ResidenceID) (*models.Receipt, error)
	RemoveResident(ctx context.Context, callerID, participant id.ParticipantID) (*models.Receipt, error)
	SetCounselor(ctx context.Context, callerID, participant id.ParticipantID, isCounselor bool) (*models.Receipt, error)
	AddTopic(ctx context.Context, callerID id.ParticipantID, req service.AddTopicRequest) (*models.Receipt, error)
	EditTopic(ctx context.Context, callerID id.ParticipantID, title string, edit models.TopicEdit) (*models.Receipt, error)
	RemoveTopic(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error)
	OpenVoting(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error)
	Vote(ctx context.Context, callerID id.ParticipantID, title string, option models.Option) (*models.Receipt, error)
	CloseVoting(ctx context.Context, callerID id.ParticipantID, title string) (*models.Receipt, error)
	PayQuota(ctx context.Context, callerID id.ParticipantID, unit id.ResidenceID, value id.Amount) (*models.Receipt, error)
	Transfer(ctx context.Context, callerID id.ParticipantID, title string, amount id.Amount) (*models.Receipt, error)

	GetResident(ctx context.Context, participant id.ParticipantID) (service.ResidentView, error)
	GetResidents(ctx context.Context, page, size int) (models.Page[service.ResidentView], error)
	GetTopic(ctx context.Context, title string) (service.TopicView, error)
	GetTopics(ctx context.Context, page, size int, statuses ...models.Status) (models.Page[service.TopicView], error)
	GetVotes(ctx context.Context, title string) ([]*models.Vote, error)
	GetManager(ctx context.Context) (id.ParticipantID, error)
	GetQuota(ctx context.Context) (id.Amount, error)
	GetTreasury(ctx context.Context) (id.Amount, error)
	ResidenceExists(ctx context.Context, unit id.ResidenceID) (bool, error)
	IsResident(ctx context.Context, participant id.ParticipantID) (bool, error)
	IsCounselor(ctx context.Context, participant id.ParticipantID) (bool, error)
	IsDefaulter(ctx context.Context, participant id.ParticipantID) (bool, error)
	Balance(ctx context.Context, participant id.ParticipantID) (id.Amount, error)
}

// History pages through journaled events.
type History interface {
	List(ctx context.Context, q audit.Query) (models.Page[models.Event], error)
}

// Handler is the thin HTTP layer. It delegates to the adapter without
// embedding business logic.
type Handler struct {
	condo   Condominium
	history History
	logger  *slog.Logger
}

type HandlerOption func(*Handler)

// WithHistory enables GET /events.
func WithHistory(history History) HandlerOption {
	return func(h *Handler) {
		h.history = history
	}
}

func NewHandler(condo Condominium, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{condo: condo, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/impl", h.handleGetImpl)
	r.Post("/upgrade", h.handleUpgrade)

	r.Get("/state", h.handleGetState)
	r.Get("/residences/{unit}", h.handleResidenceExists)
	r.Get("/balances/{participant}", h.handleBalance)
	r.Post("/quota/payments", h.handlePayQuota)
	if h.history != nil {
		r.Get("/events", h.handleListEvents)
	}

	r.Route("/residents", func(r chi.Router) {
		r.Get("/", h.handleListResidents)
		r.Post("/", h.handleAddResident)
		r.Get("/{participant}", h.handleGetResident)
		r.Get("/{participant}/standing", h.handleStanding)
		r.Delete("/{participant}", h.handleRemoveResident)
		r.Put("/{participant}/counselor", h.handleSetCounselor)
	})

	r.Route("/topics", func(r chi.Router) {
		r.Get("/", h.handleListTopics)
		r.Post("/", h.handleAddTopic)
		r.Get("/{title}", h.handleGetTopic)
		r.Patch("/{title}", h.handleEditTopic)
		r.Delete("/{title}", h.handleRemoveTopic)
		r.Post("/{title}/voting", h.handleOpenVoting)
		r.Post("/{title}/close", h.handleCloseVoting)
		r.Get("/{title}/votes", h.handleGetVotes)
		r.Post("/{title}/votes", h.handleVote)
		r.Post("/{title}/transfer", h.handleTransfer)
	})
}

// respond writes v, or the coded error. Internal failures are logged.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, v any, err error) {
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "request failed",
				"operation", op,
				"error", err,
				"request_id", requestcontext.RequestID(r.Context()),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func caller(r *http.Request) id.ParticipantID {
	return requestcontext.Caller(r.Context())
}

func titleParam(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if t, err := url.PathUnescape(raw); err == nil {
		return t
	}
	return raw
}

func participantParam(r *http.Request) (id.ParticipantID, error) {
	return id.ParseParticipantID(chi.URLParam(r, "participant"))
}

func pageParams(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, size := 1, defaultPageSize
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, dErrors.New(dErrors.CodeInvalidArgument, "page must be an integer")
		}
	}
	if v := q.Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			return 0, 0, dErrors.New(dErrors.CodeInvalidArgument, "size must be an integer")
		}
	}
	return page, size, nil
}

// handleListEvents defaults to the active backend; ?backend=all lists every
// backend the journal has seen.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := audit.Query{Page: page, Size: size, Type: models.EventType(r.URL.Query().Get("type"))}
	switch raw := r.URL.Query().Get("backend"); raw {
	case "":
		q.Backend = h.condo.GetImplAddress()
		if q.Backend == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotUpgraded, "you must upgrade first"))
			return
		}
	case "all":
	default:
		if q.Backend, err = id.ParseAddress(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	out, err := h.history.List(r.Context(), q)
	h.respond(w, r, "list_events", out, err)
}

func (h *Handler) handleGetImpl(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "get_impl", implResponse{Owner: h.condo.Owner(), Address: h.condo.GetImplAddress()}, nil)
}

func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[upgradeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	err := h.condo.Upgrade(ctx, caller(r), req.address)
	h.respond(w, r, "upgrade", implResponse{Owner: h.condo.Owner(), Address: h.condo.GetImplAddress()}, err)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	manager, err := h.condo.GetManager(ctx)
	if err != nil {
		h.respond(w, r, "get_state", nil, err)
		return
	}
	quota, err := h.condo.GetQuota(ctx)
	if err != nil {
		h.respond(w, r, "get_state", nil, err)
		return
	}
	treasury, err := h.condo.GetTreasury(ctx)
	h.respond(w, r, "get_state", stateResponse{Manager: manager, Quota: quota.String(), Treasury: treasury.String()}, err)
}

func (h *Handler) handleResidenceExists(w http.ResponseWriter, r *http.Request) {
	unit, err := id.ParseResidenceID(chi.URLParam(r, "unit"))
	if err != nil {
		h.respond(w, r, "residence_exists", existsResponse{}, nil)
		return
	}
	exists, err := h.condo.ResidenceExists(r.Context(), unit)
	h.respond(w, r, "residence_exists", existsResponse{Exists: exists}, err)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	p, err := participantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.condo.Balance(r.Context(), p)
	h.respond(w, r, "balance", balanceResponse{Participant: p, Balance: b.String()}, err)
}

func (h *Handler) handlePayQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[payQuotaRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.PayQuota(ctx, caller(r), req.Unit, req.value)
	h.respond(w, r, "pay_quota", receipt, err)
}

func (h *Handler) handleListResidents(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.condo.GetResidents(r.Context(), page, size)
	h.respond(w, r, "get_residents", out, err)
}

func (h *Handler) handleAddResident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[addResidentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.AddResident(ctx, caller(r), req.participant, req.Unit)
	h.respond(w, r, "add_resident", receipt, err)
}

func (h *Handler) handleGetResident(w http.ResponseWriter, r *http.Request) {
	p, err := participantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.condo.GetResident(r.Context(), p)
	h.respond(w, r, "get_resident", v, err)
}

func (h *Handler) handleStanding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := participantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := standingResponse{Participant: p}
	if out.IsResident, err = h.condo.IsResident(ctx, p); err != nil || !out.IsResident {
		h.respond(w, r, "standing", out, err)
		return
	}
	if out.IsCounselor, err = h.condo.IsCounselor(ctx, p); err != nil {
		h.respond(w, r, "standing", nil, err)
		return
	}
	out.IsDefaulter, err = h.condo.IsDefaulter(ctx, p)
	h.respond(w, r, "standing", out, err)
}

func (h *Handler) handleRemoveResident(w http.ResponseWriter, r *http.Request) {
	p, err := participantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.condo.RemoveResident(r.Context(), caller(r), p)
	h.respond(w, r, "remove_resident", receipt, err)
}

func (h *Handler) handleSetCounselor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := participantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[setCounselorRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.SetCounselor(ctx, caller(r), p, req.IsCounselor)
	h.respond(w, r, "set_counselor", receipt, err)
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var statuses []models.Status
	for _, raw := range pstrings.SplitList(r.URL.Query()["status"]) {
		st, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		statuses = append(statuses, st)
	}
	out, err := h.condo.GetTopics(r.Context(), page, size, statuses...)
	h.respond(w, r, "get_topics", out, err)
}

func (h *Handler) handleAddTopic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[addTopicRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.AddTopic(ctx, caller(r), req.parsed)
	h.respond(w, r, "add_topic", receipt, err)
}

func (h *Handler) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	v, err := h.condo.GetTopic(r.Context(), titleParam(r))
	h.respond(w, r, "get_topic", v, err)
}

func (h *Handler) handleEditTopic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[editTopicRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.EditTopic(ctx, caller(r), titleParam(r), req.edit)
	h.respond(w, r, "edit_topic", receipt, err)
}

func (h *Handler) handleRemoveTopic(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.condo.RemoveTopic(r.Context(), caller(r), titleParam(r))
	h.respond(w, r, "remove_topic", receipt, err)
}

func (h *Handler) handleOpenVoting(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.condo.OpenVoting(r.Context(), caller(r), titleParam(r))
	h.respond(w, r, "open_voting", receipt, err)
}

func (h *Handler) handleCloseVoting(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.condo.CloseVoting(r.Context(), caller(r), titleParam(r))
	h.respond(w, r, "close_voting", receipt, err)
}

func (h *Handler) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.condo.GetVotes(r.Context(), titleParam(r))
	h.respond(w, r, "get_votes", votes, err)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[voteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.Vote(ctx, caller(r), titleParam(r), req.option)
	h.respond(w, r, "vote", receipt, err)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[transferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.condo.Transfer(ctx, caller(r), titleParam(r), req.amount)
	h.respond(w, r, "transfer", receipt, err)
}
