package iam

import (
	"sort"
	"time"
)

// Role names recognized by the authorization policy. The registry may hold
// additional roles, but policy decisions only look at these three.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleUser       = "user"
)

// User is an identity record. The password digest is never serialized.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordDigest string
	Active         bool
	CreatedAt      time.Time
}

// Role is a named permission class.
type Role struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile is the wire representation of a user together with role names.
type Profile struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Active    bool       `json:"active"`
	Roles     []string   `json:"roles"`
	CreatedAt *time.Time `json:"created_at"`
}

// NewProfile builds the serializable view of a user. A zero creation time is
// rendered as null.
func NewProfile(u User, roles []string) Profile {
	if roles == nil {
		roles = []string{}
	}
	p := Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Active:   u.Active,
		Roles:    roles,
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		p.CreatedAt = &created
	}
	return p
}

// RoleSet is the set of role names held by an actor.
type RoleSet map[string]struct{}

// NewRoleSet normalizes names into a set.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// IsAdmin reports whether the set carries admin or super_admin.
func (s RoleSet) IsAdmin() bool {
	return s.Has(RoleAdmin) || s.Has(RoleSuperAdmin)
}

// IsSuperAdmin reports whether the set carries super_admin.
func (s RoleSet) IsSuperAdmin() bool {
	return s.Has(RoleSuperAdmin)
}

// Names returns the sorted role names.
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID    string
	Roles RoleSet
}

// UserPatch describes a partial admin update. Nil fields are left untouched.
// A non-nil Roles replaces the user's entire membership set.
type UserPatch struct {
	Username *string
	Email    *string
	Active   *bool
	Roles    []string
}

// UserUpdate is the storage-level field update derived from a patch.
type UserUpdate struct {
	Username *string
	Email    *string
	Active   *bool
}
