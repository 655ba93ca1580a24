package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/auth"
)

const (
	authHeader   = "Authorization"
	bearer       = "Bearer "
	apiKeyHeader = "X-Api-Key"
)

// withSession authenticates provider-side callers with a Bearer session
// token and stores the identity in the request context.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			writeError(w, r, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}
		token := strings.TrimSpace(header[len(bearer):])
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := auth.ContextWithUser(r.Context(), claims.Subject, claims.ProviderID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAPIKey authenticates the external integration channel. The key
// comparison is constant-time so the check leaks nothing about a partial
// match.
func (a *API) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			writeError(w, r, http.StatusUnauthorized, "integration channel is not configured")
			return
		}
		got := strings.TrimSpace(r.Header.Get(apiKeyHeader))
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.apiKey)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionUserID returns the authenticated session user or fails the
// request. Handlers behind withSession can rely on it being set.
func sessionUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return "", false
	}
	return userID, true
}
