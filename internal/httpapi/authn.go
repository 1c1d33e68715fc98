package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"idfort.org/internal/iam"
)

const (
	authHeader    = "Authorization"
	bearer        = "Bearer "
	sessionCookie = "session"
)

var publicPaths = []string{
	"/api/login",
	"/api/logout",
	"/api/register",
	"/healthz",
	"/readyz",
	"/metrics",
	"/",
}

// withSession resolves the session token into an authenticated actor. Public
// paths pass through; everything else requires a live session.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := a.sessions.Resolve(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		user, roles, err := a.accounts.Identity(r.Context(), userID)
		if err != nil {
			if errors.Is(err, iam.ErrUnauthenticated) {
				writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
			} else {
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := iam.ContextWithActor(r.Context(), iam.Actor{ID: user.ID, Roles: roles})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken looks for the session token in the Authorization header, the
// token query parameter, then the session cookie. The header wins.
func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		if token := strings.TrimSpace(header[len(bearer):]); token != "" {
			return token
		}
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
