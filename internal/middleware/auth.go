package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/fridgemate/internal/handlers"
	"github.com/HammerMeetNail/fridgemate/internal/logging"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

const sessionCookieName = "session_token"

type AuthMiddleware struct {
	sessions services.SessionServiceInterface
}

func NewAuthMiddleware(sessions services.SessionServiceInterface) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate resolves a bearer token or session cookie into the request's
// account id. Unauthenticated requests pass through unchanged.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" || m.sessions == nil {
			next.ServeHTTP(w, r)
			return
		}

		accountID, err := m.sessions.ValidateSession(r.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				logging.Warn("Session lookup failed", map[string]interface{}{
					"error": err.Error(),
					"path":  r.URL.Path,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := handlers.SetAccountIDInContext(r.Context(), accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := handlers.GetAccountIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
