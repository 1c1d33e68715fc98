package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"idfort.org/internal/iam"
)

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)

	rec := env.do(http.MethodGet, "/api/admin/users", env.sessionFor(t, adminID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	users, _ := decodeBody(t, rec)["users"].([]any)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestListUsersForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	userID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)

	rec := env.do(http.MethodGet, "/api/admin/users", env.sessionFor(t, userID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateUserFields(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)

	rec := env.do(http.MethodPut, "/api/admin/users/"+targetID, env.sessionFor(t, adminID), map[string]any{
		"username": "alice2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	user, _ := decodeBody(t, rec)["user"].(map[string]any)
	if user["username"] != "alice2" {
		t.Fatalf("unexpected user: %v", user)
	}
}

func TestUpdateUserRoleEscalationDenied(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)

	rec := env.do(http.MethodPut, "/api/admin/users/"+targetID, env.sessionFor(t, adminID), map[string]any{
		"roles": []string{"super_admin"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}

	roles, err := env.store.Roles().RolesOf(context.Background(), targetID)
	if err != nil {
		t.Fatalf("RolesOf: %v", err)
	}
	if len(roles) != 1 || roles[0] != iam.RoleUser {
		t.Fatalf("roles changed after denied update: %v", roles)
	}
}

func TestUpdateUserRolesBySuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	superID := env.seedUser(t, "root", "root@example.com", "pw123456", iam.RoleSuperAdmin)

	rec := env.do(http.MethodPut, "/api/admin/users/"+targetID, env.sessionFor(t, superID), map[string]any{
		"roles": []string{"admin", "user"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	user, _ := decodeBody(t, rec)["user"].(map[string]any)
	roles, _ := user["roles"].([]any)
	if len(roles) != 2 || roles[0] != "admin" || roles[1] != "user" {
		t.Fatalf("unexpected roles: %v", roles)
	}
}

func TestUpdateUserUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	superID := env.seedUser(t, "root", "root@example.com", "pw123456", iam.RoleSuperAdmin)

	rec := env.do(http.MethodPut, "/api/admin/users/"+targetID, env.sessionFor(t, superID), map[string]any{
		"roles": []string{"wizard"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

// Deactivating an account kills its live sessions immediately.
func TestDeactivationRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)
	targetToken := env.sessionFor(t, targetID)

	rec := env.do(http.MethodPut, "/api/admin/users/"+targetID, env.sessionFor(t, adminID), map[string]any{
		"active": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/me", targetToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated session still works: status = %d", rec.Code)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)

	rec := env.do(http.MethodPut, "/api/admin/users/ghost-id", env.sessionFor(t, adminID), map[string]any{
		"username": "ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	superID := env.seedUser(t, "root", "root@example.com", "pw123456", iam.RoleSuperAdmin)
	targetToken := env.sessionFor(t, targetID)

	rec := env.do(http.MethodDelete, "/api/admin/users/"+targetID, env.sessionFor(t, superID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "user deleted successfully" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	if _, err := env.store.Users().Find(context.Background(), targetID); !errors.Is(err, iam.ErrNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	// The deleted account's sessions are gone too.
	rec = env.do(http.MethodGet, "/api/me", targetToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user session still works: status = %d", rec.Code)
	}
}

func TestDeleteUserRequiresSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	targetID := env.seedUser(t, "alice", "alice@example.com", "pw123456", iam.RoleUser)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)

	rec := env.do(http.MethodDelete, "/api/admin/users/"+targetID, env.sessionFor(t, adminID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
}

// Self-deletion answers 400, not 403, and leaves the account in place.
func TestDeleteSelfDenied(t *testing.T) {
	env := newTestEnv(t)
	superID := env.seedUser(t, "root", "root@example.com", "pw123456", iam.RoleSuperAdmin)

	rec := env.do(http.MethodDelete, "/api/admin/users/"+superID, env.sessionFor(t, superID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if _, err := env.store.Users().Find(context.Background(), superID); err != nil {
		t.Fatalf("account disappeared: %v", err)
	}
}

func TestDeleteMissingUser(t *testing.T) {
	env := newTestEnv(t)
	superID := env.seedUser(t, "root", "root@example.com", "pw123456", iam.RoleSuperAdmin)

	rec := env.do(http.MethodDelete, "/api/admin/users/ghost-id", env.sessionFor(t, superID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestUserResourceRouting(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.seedUser(t, "boss", "boss@example.com", "pw123456", iam.RoleAdmin)
	token := env.sessionFor(t, adminID)

	rec := env.do(http.MethodGet, "/api/admin/users/"+adminID, token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET on resource: status = %d, want 405", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/admin/users/a/b", token, map[string]any{"username": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nested path: status = %d, want 404", rec.Code)
	}
	rec = env.do(http.MethodPost, "/api/admin/users", token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST on collection: status = %d, want 405", rec.Code)
	}
}
