package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"idfort.org/internal/iam"
)

type roleStore struct{ q querier }

func (s *roleStore) Ensure(ctx context.Context, name, description string) (*iam.Role, error) {
	// on conflict do nothing + follow-up select keeps the call idempotent
	// under concurrent bootstrap runs.
	_, err := s.q.ExecContext(ctx, `
		insert into roles (name, description)
		values ($1, $2)
		on conflict (name) do nothing
	`, name, description)
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, name)
}

func (s *roleStore) Find(ctx context.Context, name string) (*iam.Role, error) {
	var role iam.Role
	err := s.q.QueryRowContext(ctx,
		`select name, description, created_at from roles where name = $1`, name,
	).Scan(&role.Name, &role.Description, &role.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, iam.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *roleStore) RolesOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`select role_name from memberships where user_id = $1 order by role_name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (s *roleStore) AddRole(ctx context.Context, userID, roleName string) error {
	_, err := s.q.ExecContext(ctx, `
		insert into memberships (user_id, role_name)
		values ($1, $2)
		on conflict do nothing
	`, userID, roleName)
	if err != nil {
		return mapMembershipError(err, roleName)
	}
	return nil
}

// SetRoles replaces the user's entire membership set. Callers run this inside
// WithTx together with any field updates so the replacement is atomic.
func (s *roleStore) SetRoles(ctx context.Context, userID string, roleNames []string) error {
	if _, err := s.q.ExecContext(ctx,
		`delete from memberships where user_id = $1`, userID); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(roleNames))
	for _, name := range roleNames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, err := s.q.ExecContext(ctx, `
			insert into memberships (user_id, role_name)
			values ($1, $2)
		`, userID, name); err != nil {
			return mapMembershipError(err, name)
		}
	}
	return nil
}

// mapMembershipError turns an FK violation on the role edge into
// ErrUnknownRole; the user edge surfaces as ErrNotFound.
func mapMembershipError(err error, roleName string) error {
	mapped := mapConstraintError(err)
	if errors.Is(mapped, iam.ErrNotFound) {
		if pgErr, ok := maybePgError(err); ok && pgErr.ConstraintName == "memberships_role_name_fkey" {
			return fmt.Errorf("%w: %s", iam.ErrUnknownRole, roleName)
		}
	}
	return mapped
}
