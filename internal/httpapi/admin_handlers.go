package httpapi

import (
	"net/http"
	"strings"

	"idfort.org/internal/iam"
	"idfort.org/internal/obs"
)

type updateUserRequest struct {
	Username *string   `json:"username"`
	Email    *string   `json:"email"`
	Active   *bool     `json:"active"`
	Roles    *[]string `json:"roles"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	users, err := a.accounts.ListUsers(r.Context(), actor)
	if err != nil {
		handleIAMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, targetID string) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	patch := iam.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		Active:   req.Active,
	}
	if req.Roles != nil {
		patch.Roles = *req.Roles
		if patch.Roles == nil {
			patch.Roles = []string{}
		}
	}

	profile, err := a.accounts.UpdateUser(r.Context(), actor, targetID, patch)
	if err != nil {
		handleIAMError(w, r, err)
		return
	}
	// Deactivation kills the target's live sessions immediately.
	if patch.Active != nil && !*patch.Active {
		a.sessions.RevokeUser(targetID)
		obs.SetActiveSessions(a.sessions.ActiveCount())
	}
	a.audit.Event(r.Context(), "account.update", map[string]string{
		"target_id": targetID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "user updated successfully",
		"user":    profile,
	})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, targetID string) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	if err := a.accounts.DeleteUser(r.Context(), actor, targetID); err != nil {
		handleIAMError(w, r, err)
		return
	}
	a.sessions.RevokeUser(targetID)
	obs.SetActiveSessions(a.sessions.ActiveCount())
	a.audit.Event(r.Context(), "account.delete", map[string]string{
		"target_id": targetID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deleted successfully"})
}
