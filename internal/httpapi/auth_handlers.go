package httpapi

import (
	"errors"
	"net/http"
	"time"

	"idfort.org/internal/iam"
	"idfort.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password required")
		return
	}

	user, roles, err := a.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, iam.ErrUnauthenticated) {
			obs.ObserveLogin("failure")
			// One message for every failure mode; never reveal which
			// part of the credentials was wrong.
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	token, expiresAt, err := a.sessions.Issue(user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session creation failed")
		return
	}
	obs.ObserveLogin("success")
	obs.SetActiveSessions(a.sessions.ActiveCount())
	a.setSessionCookie(w, token, expiresAt)
	a.audit.Event(r.Context(), "auth.login", map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "login successful",
		"user":       iam.NewProfile(*user, roles.Names()),
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// handleLogout invalidates the presented session. Logging out twice, or with
// no session at all, is not an error.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if token := extractToken(r); token != "" {
		a.sessions.Revoke(token)
		obs.SetActiveSessions(a.sessions.ActiveCount())
	}
	a.clearSessionCookie(w)
	a.audit.Event(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"message": "logout successful"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	user, roles, err := a.accounts.Identity(r.Context(), actor.ID)
	if err != nil {
		handleIAMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": iam.NewProfile(*user, roles.Names()),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password required")
		return
	}

	profile, err := a.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleIAMError(w, r, err)
		return
	}
	a.audit.Event(r.Context(), "account.register", map[string]string{
		"user_id":  profile.ID,
		"username": profile.Username,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user created successfully",
		"user":    profile,
	})
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
