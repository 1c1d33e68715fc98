package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"idfort.org/internal/iam"
)

type userStore struct{ q querier }

const userColumns = `id, username, email, password_digest, active, created_at`

func (s *userStore) Create(ctx context.Context, u *iam.User) error {
	_, err := s.q.ExecContext(ctx, `
		insert into users (id, username, email, password_digest, active, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.Email, u.PasswordDigest, u.Active, u.CreatedAt)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*iam.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*iam.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where username = $1`, username))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*iam.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = lower($1)`, email))
}

func (s *userStore) List(ctx context.Context) ([]*iam.User, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+userColumns+` from users order by created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*iam.User
	for rows.Next() {
		var u iam.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordDigest, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, id string, upd iam.UserUpdate) (*iam.User, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Username != nil {
		sets = append(sets, fmt.Sprintf("username = $%d", idx))
		args = append(args, *upd.Username)
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.q.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, mapConstraintError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, iam.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return iam.ErrNotFound
	}
	return nil
}

func (s *userStore) scanOne(row *sql.Row) (*iam.User, error) {
	var u iam.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordDigest, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, iam.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
