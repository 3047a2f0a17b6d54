package httptransport_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"condo/internal/adapter"
	"condo/internal/audit"
	"condo/internal/condominium/models"
	"condo/internal/condominium/service"
	"condo/internal/host"
	jwttoken "condo/internal/jwt_token"
	"condo/internal/platform/metrics"
	httptransport "condo/internal/transport/http"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
	"condo/pkg/platform/middleware/request"
	"condo/pkg/testutil"
)

const (
	owner    = id.ParticipantID("0x00000000000000000000000000000000000000a1")
	resident = id.ParticipantID("0x00000000000000000000000000000000000000c3")
	outsider = id.ParticipantID("0x00000000000000000000000000000000000000d4")
)

type HandlerSuite struct {
	suite.Suite
	ctx         context.Context
	now         time.Time
	jwt         *jwttoken.JWTService
	revocations *jwttoken.MemoryRevocations
	backend     *service.Service
	journal     *audit.Journal
	router      http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h, err := host.New()
	s.Require().NoError(err)
	s.backend, err = h.Deploy(s.ctx, owner)
	s.Require().NoError(err)
	s.journal = audit.NewJournal(audit.NewInMemory(), logger)
	a, err := adapter.New(s.ctx, owner, h, adapter.WithPublisher(s.journal))
	s.Require().NoError(err)

	reg := prometheus.NewRegistry()
	s.jwt = jwttoken.NewJWTService("test-signing-key", "condo", "condo-api")
	s.revocations = jwttoken.NewMemoryRevocations()
	s.router = httptransport.NewRouter(httptransport.RouterConfig{
		Handler:     httptransport.NewHandler(a, logger, httptransport.WithHistory(s.journal)),
		Validator:   s.jwt,
		Revocations: s.revocations,
		Logger:      logger,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Clock:       func() time.Time { return s.now },
	})
}

func (s *HandlerSuite) token(p id.ParticipantID) string {
	tok, err := s.jwt.GenerateAccessToken(p, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *HandlerSuite) do(method, path string, caller id.ParticipantID, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if caller != "" {
		testutil.WithBearer(req, s.token(caller))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *HandlerSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp httputil.ErrorResponse
	s.decode(w, &resp)
	return resp.Error
}

func (s *HandlerSuite) upgrade() {
	w := s.do(http.MethodPost, "/v1/upgrade", owner, map[string]string{"address": string(s.backend.Address())})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *HandlerSuite) TestPublicEndpoints() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get(request.HeaderRequestID))

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestAuthentication() {
	s.Run("missing token", func() {
		w := s.do(http.MethodGet, "/v1/impl", "", nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("malformed token", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/impl", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("revoked token", func() {
		tok := s.token(owner)
		claims, err := s.jwt.ValidateToken(tok)
		s.Require().NoError(err)
		s.Require().NoError(s.revocations.Revoke(s.ctx, claims.JTI, claims.ExpiresAt))

		req := httptest.NewRequest(http.MethodGet, "/v1/impl", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("request id is echoed", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/impl", nil)
		req.Header.Set("Authorization", "Bearer "+s.token(owner))
		req.Header.Set(request.HeaderRequestID, "req-123")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("req-123", w.Header().Get(request.HeaderRequestID))
	})
}

func (s *HandlerSuite) TestUpgrade() {
	s.Run("calls fail before the first upgrade", func() {
		w := s.do(http.MethodGet, "/v1/state", owner, nil)
		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.Equal("not_upgraded", s.errorCode(w))
	})

	s.Run("owner only", func() {
		w := s.do(http.MethodPost, "/v1/upgrade", outsider, map[string]string{"address": string(s.backend.Address())})
		s.Equal(http.StatusForbidden, w.Code)
		s.Equal("permission_denied", s.errorCode(w))
	})

	s.Run("invalid address", func() {
		w := s.do(http.MethodPost, "/v1/upgrade", owner, map[string]string{"address": "0x12"})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("invalid_address", s.errorCode(w))
	})

	s.Run("success", func() {
		s.upgrade()
		w := s.do(http.MethodGet, "/v1/impl", resident, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var impl struct {
			Owner   string `json:"owner"`
			Address string `json:"address"`
		}
		s.decode(w, &impl)
		s.Equal(string(owner), impl.Owner)
		s.Equal(string(s.backend.Address()), impl.Address)
	})
}

func (s *HandlerSuite) TestGovernanceFlow() {
	s.upgrade()
	quota := models.DefaultMonthlyQuota.String()

	w := s.do(http.MethodPost, "/v1/residents", owner, map[string]any{"participant": string(resident), "unit": 1101})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var receipt models.Receipt
	s.decode(w, &receipt)
	s.Equal(s.backend.Address(), receipt.Backend)
	s.Len(receipt.Events, 1)

	w = s.do(http.MethodPost, "/v1/topics", resident, map[string]string{"title": "garden", "category": "DECISION"})
	s.Equal(http.StatusForbidden, w.Code, "defaulters cannot propose")

	w = s.do(http.MethodPost, "/v1/quota/payments", outsider, map[string]any{"unit": 1101, "value": quota})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/quota/payments", resident, map[string]any{"unit": 1101, "value": quota})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("already_paid_this_period", s.errorCode(w))

	w = s.do(http.MethodGet, "/v1/residents/"+string(resident)+"/standing", outsider, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var standing map[string]any
	s.decode(w, &standing)
	s.Equal(true, standing["is_resident"])
	s.Equal(false, standing["is_defaulter"])

	w = s.do(http.MethodPost, "/v1/topics", resident, map[string]string{"title": "new garden", "category": "DECISION"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	path := "/v1/topics/" + url.PathEscape("new garden")
	w = s.do(http.MethodPatch, path, owner, map[string]string{"description": "roses"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, path+"/voting", owner, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPatch, path, owner, map[string]string{"description": "tulips"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("invalid_state", s.errorCode(w))

	w = s.do(http.MethodPost, path+"/votes", resident, map[string]string{"option": "yes"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, path+"/votes", resident, map[string]string{"option": "NO"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("duplicate_vote", s.errorCode(w))
	w = s.do(http.MethodPost, path+"/votes", owner, map[string]string{"option": ""})
	s.Equal("empty_option", s.errorCode(w))

	w = s.do(http.MethodGet, path+"/votes", outsider, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var votes []models.Vote
	s.decode(w, &votes)
	s.Require().Len(votes, 1)
	s.True(s.now.Equal(votes[0].CastAt), "vote time comes from the request clock")

	w = s.do(http.MethodPost, path+"/close", owner, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("quorum_not_met", s.errorCode(w))

	w = s.do(http.MethodGet, "/v1/topics?status=VOTING", outsider, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page models.Page[service.TopicView]
	s.decode(w, &page)
	s.Equal(1, page.Total)
	s.Equal(1, page.Items[0].Votes)

	w = s.do(http.MethodGet, "/v1/state", outsider, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var state map[string]string
	s.decode(w, &state)
	s.Equal(string(owner), state["manager"])
	s.Equal(quota, state["treasury"])
}

func (s *HandlerSuite) TestEventHistory() {
	w := s.do(http.MethodGet, "/v1/events", outsider, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)

	s.upgrade()
	w = s.do(http.MethodPost, "/v1/residents", owner, map[string]any{"participant": string(resident), "unit": 1101})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPut, "/v1/residents/"+string(resident)+"/counselor", owner, map[string]bool{"is_counselor": true})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/v1/events?size=1", outsider, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var page struct {
		Items []struct {
			Type    models.EventType `json:"type"`
			Backend id.Address       `json:"backend"`
		} `json:"items"`
		Total int `json:"total"`
	}
	s.decode(w, &page)
	s.Equal(2, page.Total)
	s.Require().Len(page.Items, 1)
	s.Equal(models.EventResidentChanged, page.Items[0].Type)
	s.Equal(s.backend.Address(), page.Items[0].Backend)

	w = s.do(http.MethodGet, "/v1/events?backend=0x1", outsider, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_address", s.errorCode(w))

	w = s.do(http.MethodGet, "/v1/events?backend=all&type=QuotaChanged", outsider, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &page)
	s.Zero(page.Total)
}

func (s *HandlerSuite) TestValidation() {
	s.upgrade()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad participant", http.MethodPost, "/v1/residents", map[string]any{"participant": "bob", "unit": 1101}, http.StatusBadRequest, "invalid_participant"},
		{"unknown unit", http.MethodPost, "/v1/residents", map[string]any{"participant": string(resident), "unit": 9999}, http.StatusBadRequest, "unknown_residence"},
		{"bad category", http.MethodPost, "/v1/topics", map[string]string{"title": "x", "category": "PARTY"}, http.StatusBadRequest, "invalid_argument"},
		{"bad amount", http.MethodPost, "/v1/quota/payments", map[string]any{"unit": 1101, "value": "-5"}, http.StatusBadRequest, "invalid_argument"},
		{"page size", http.MethodGet, "/v1/residents?size=101", nil, http.StatusBadRequest, "invalid_argument"},
		{"page zero", http.MethodGet, "/v1/topics?page=0", nil, http.StatusBadRequest, "invalid_argument"},
		{"bad status", http.MethodGet, "/v1/topics?status=DONE", nil, http.StatusBadRequest, "invalid_argument"},
		{"unknown topic", http.MethodGet, "/v1/topics/nothing", nil, http.StatusNotFound, "not_found"},
		{"unknown resident", http.MethodGet, "/v1/residents/" + string(outsider), nil, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := s.do(tc.method, tc.path, owner, tc.body)
			s.Equal(tc.status, w.Code, w.Body.String())
			s.Equal(tc.code, s.errorCode(w))
		})
	}
}
