package iam

import "context"

// Store describes the transactional record store backing the account
// lifecycle. Uniqueness and referential integrity are enforced by the store
// itself, not by check-then-act application logic.
type Store interface {
	Users() UserStore
	Roles() RoleStore

	// WithTx runs fn against a store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UserStore owns user records and password digests.
type UserStore interface {
	// Create persists a new user. Duplicate username or email yields
	// ErrConflict from the store's own constraints.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	// FindByUsername matches the username exactly (case-sensitive).
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// Update applies the non-nil fields, reusing the creation uniqueness
	// constraints. Missing user yields ErrNotFound.
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	// Delete hard-deletes the user; membership edges cascade.
	Delete(ctx context.Context, id string) error
}

// RoleStore owns roles and the user-role membership edges.
type RoleStore interface {
	// Ensure creates the role if absent and returns it either way.
	Ensure(ctx context.Context, name, description string) (*Role, error)
	Find(ctx context.Context, name string) (*Role, error)
	RolesOf(ctx context.Context, userID string) ([]string, error)
	AddRole(ctx context.Context, userID, roleName string) error
	// SetRoles replaces the user's entire membership set. Any unregistered
	// role name yields ErrUnknownRole and leaves the set unchanged.
	SetRoles(ctx context.Context, userID string, roleNames []string) error
}
