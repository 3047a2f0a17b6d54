package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"condo/pkg/requestcontext"
)

// Client kinds derived from the User-Agent header.
const (
	KindUnknown = "unknown"
	KindBot     = "bot"
	KindMobile  = "mobile"
	KindDesktop = "desktop"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for use by handlers and services.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua, ClientKind(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientKind classifies a User-Agent string.
func ClientKind(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return KindUnknown
	}
	ua := useragent.New(userAgent)
	switch {
	case ua.Bot():
		return KindBot
	case ua.Mobile():
		return KindMobile
	default:
		return KindDesktop
	}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port", or "[::1]:port" for IPv6
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
