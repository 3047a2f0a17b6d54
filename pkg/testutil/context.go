package testutil

import (
	"net/http"
	"time"

	id "condo/pkg/domain"
	"condo/pkg/requestcontext"
)

// WithCaller stamps the authenticated participant the way RequireAuth does.
func WithCaller(req *http.Request, caller id.ParticipantID) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
