// Package iamtest provides an in-memory iam.Store for tests. It enforces the
// same uniqueness and referential rules as the PostgreSQL store so service
// behavior can be exercised without a database.
package iamtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"idfort.org/internal/iam"
)

// Store is an in-memory, mutex-guarded iam.Store.
type Store struct {
	mu          sync.Mutex
	users       map[string]*iam.User
	roles       map[string]iam.Role
	memberships map[string]map[string]bool
}

var _ iam.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]*iam.User),
		roles:       make(map[string]iam.Role),
		memberships: make(map[string]map[string]bool),
	}
}

func (s *Store) Users() iam.UserStore { return &userStore{s} }
func (s *Store) Roles() iam.RoleStore { return &roleStore{s} }

// WithTx runs fn against the same store. In-memory operations are already
// atomic per call; multi-step rollback is not simulated.
func (s *Store) WithTx(ctx context.Context, fn func(iam.Store) error) error {
	return fn(s)
}

// UserCount reports how many users exist.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// RoleCount reports how many roles are registered.
func (s *Store) RoleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roles)
}

type userStore struct{ s *Store }

func (us *userStore) Create(ctx context.Context, u *iam.User) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	for _, existing := range us.s.users {
		if existing.Username == u.Username ||
			strings.EqualFold(existing.Email, u.Email) {
			return iam.ErrConflict
		}
	}
	clone := *u
	us.s.users[u.ID] = &clone
	return nil
}

func (us *userStore) Find(ctx context.Context, id string) (*iam.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	u, ok := us.s.users[id]
	if !ok {
		return nil, iam.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (us *userStore) FindByUsername(ctx context.Context, username string) (*iam.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	for _, u := range us.s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, iam.ErrNotFound
}

func (us *userStore) FindByEmail(ctx context.Context, email string) (*iam.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	for _, u := range us.s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, iam.ErrNotFound
}

func (us *userStore) List(ctx context.Context) ([]*iam.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	out := make([]*iam.User, 0, len(us.s.users))
	for _, u := range us.s.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (us *userStore) Update(ctx context.Context, id string, upd iam.UserUpdate) (*iam.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	u, ok := us.s.users[id]
	if !ok {
		return nil, iam.ErrNotFound
	}
	for otherID, other := range us.s.users {
		if otherID == id {
			continue
		}
		if upd.Username != nil && other.Username == *upd.Username {
			return nil, iam.ErrConflict
		}
		if upd.Email != nil && strings.EqualFold(other.Email, *upd.Email) {
			return nil, iam.ErrConflict
		}
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	clone := *u
	return &clone, nil
}

func (us *userStore) Delete(ctx context.Context, id string) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	if _, ok := us.s.users[id]; !ok {
		return iam.ErrNotFound
	}
	delete(us.s.users, id)
	delete(us.s.memberships, id)
	return nil
}

type roleStore struct{ s *Store }

func (rs *roleStore) Ensure(ctx context.Context, name, description string) (*iam.Role, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	role, ok := rs.s.roles[name]
	if !ok {
		role = iam.Role{Name: name, Description: description}
		rs.s.roles[name] = role
	}
	clone := role
	return &clone, nil
}

func (rs *roleStore) Find(ctx context.Context, name string) (*iam.Role, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	role, ok := rs.s.roles[name]
	if !ok {
		return nil, iam.ErrNotFound
	}
	clone := role
	return &clone, nil
}

func (rs *roleStore) RolesOf(ctx context.Context, userID string) ([]string, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	var names []string
	for name := range rs.s.memberships[userID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (rs *roleStore) AddRole(ctx context.Context, userID, roleName string) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	if _, ok := rs.s.users[userID]; !ok {
		return iam.ErrNotFound
	}
	if _, ok := rs.s.roles[roleName]; !ok {
		return fmt.Errorf("%w: %s", iam.ErrUnknownRole, roleName)
	}
	if rs.s.memberships[userID] == nil {
		rs.s.memberships[userID] = make(map[string]bool)
	}
	rs.s.memberships[userID][roleName] = true
	return nil
}

func (rs *roleStore) SetRoles(ctx context.Context, userID string, roleNames []string) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	if _, ok := rs.s.users[userID]; !ok {
		return iam.ErrNotFound
	}
	for _, name := range roleNames {
		if _, ok := rs.s.roles[name]; !ok {
			return fmt.Errorf("%w: %s", iam.ErrUnknownRole, name)
		}
	}
	next := make(map[string]bool, len(roleNames))
	for _, name := range roleNames {
		next[name] = true
	}
	rs.s.memberships[userID] = next
	return nil
}
