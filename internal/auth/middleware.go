package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/banner-pricing/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware guards admin routes.
type Middleware struct {
	Verifier *Verifier
}

// RequireAdmin rejects requests without a valid admin bearer token and stores
// the token subject on the request context.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "admin authentication not configured", nil)
			return
		}
		subject, err := m.Verifier.Verify(bearerToken(r))
		if err != nil {
			common.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithSubject(r.Context(), subject)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
