package httptransport_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condo/internal/adapter"
	"condo/internal/host"
	httptransport "condo/internal/transport/http"
	"condo/pkg/testutil"
)

// The handler trusts whatever caller the context carries, so it can be
// driven without the auth middleware.
func TestHandlerWithoutAuthLayer(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	testutil.Given(t, "an upgraded adapter mounted on a bare router", func(t *testing.T) {
		ctx := t.Context()
		h, err := host.New()
		require.NoError(t, err)
		backend, err := h.Deploy(ctx, owner)
		require.NoError(t, err)
		a, err := adapter.New(ctx, owner, h)
		require.NoError(t, err)
		require.NoError(t, a.Upgrade(ctx, owner, backend.Address()))

		r := chi.NewRouter()
		httptransport.NewHandler(a, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

		serve := func(req *http.Request) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, testutil.WithTime(req, now))
			return w
		}

		testutil.When(t, "the manager registers a resident", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/residents", map[string]any{"participant": string(resident), "unit": 2304})
			w := serve(testutil.WithCaller(req, owner))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			testutil.Then(t, "the residence reports as known", func(t *testing.T) {
				w := serve(testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodGet, "/residences/2304", nil), outsider))
				require.Equal(t, http.StatusOK, w.Code)
				body := testutil.DecodeJSON[map[string]bool](t, w)
				assert.True(t, body["exists"])
			})

			testutil.And(t, "the resident starts out as a defaulter on that unit", func(t *testing.T) {
				w := serve(testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodGet, "/residents/"+string(resident), nil), outsider))
				require.Equal(t, http.StatusOK, w.Code, w.Body.String())
				body := testutil.DecodeJSON[map[string]any](t, w)
				assert.Equal(t, float64(2304), body["unit"])
				assert.Equal(t, true, body["is_defaulter"])
			})
		})

		testutil.When(t, "a non-manager tries the same", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/residents", map[string]any{"participant": string(outsider), "unit": 1101})
			w := serve(testutil.WithCaller(req, resident))

			testutil.Then(t, "the request is forbidden", func(t *testing.T) {
				assert.Equal(t, http.StatusForbidden, w.Code)
			})
		})
	})
}
