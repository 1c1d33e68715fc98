// Package pg implements the iam record store on PostgreSQL. Uniqueness and
// referential integrity live in the schema; constraint violations are mapped
// to the iam sentinel errors instead of being pre-checked in application
// code.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"idfort.org/internal/iam"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same store code
// serves plain and transactional access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements iam.Store using PostgreSQL.
type Store struct {
	db *sql.DB
	q  querier
}

var _ iam.Store = (*Store)(nil)

// Open connects to PostgreSQL with pool defaults suited to short
// transactions.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for readiness pings and migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() iam.UserStore { return &userStore{q: s.q} }
func (s *Store) Roles() iam.RoleStore { return &roleStore{q: s.q} }

// WithTx runs fn against a transaction-bound store. Nested calls reuse the
// already open transaction.
func (s *Store) WithTx(ctx context.Context, fn func(iam.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func mapConstraintError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return iam.ErrConflict
		case pgErrForeignKeyViolation:
			return iam.ErrNotFound
		}
	}
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
