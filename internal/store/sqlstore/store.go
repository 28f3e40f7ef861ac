// Package sqlstore persists accounts and the role graph through database/sql.
// The same queries serve PostgreSQL (pgx) and SQLite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/migrate"
)

var _ auth.Store = (*Store)(nil)

// Store implements auth.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open connects to dsn using the named dialect ("postgres" or "sqlite").
func Open(ctx context.Context, dialect, dsn string) (*Store, error) {
	switch dialect {
	case migrate.DialectPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		// Tuned pool defaults; adjust under load tests
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return New(db, dialect), nil
	case migrate.DialectSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// a second connection to ":memory:" would see an empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON;",
			"PRAGMA busy_timeout = 5000;",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}
		return New(db, dialect), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}
}

// New wraps an open database. Queries are written with $n placeholders and
// rewritten for SQLite.
func New(db *sql.DB, dialect string) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() string { return s.dialect }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema.
func (s *Store) Migrate(ctx context.Context) (int64, error) {
	mgr, err := migrate.NewManager(s.db, s.dialect)
	if err != nil {
		return 0, err
	}
	return mgr.Up(ctx)
}

func (s *Store) Accounts(context.Context) auth.AccountStore       { return &accountStore{s} }
func (s *Store) Roles(context.Context) auth.RoleStore             { return &roleStore{s} }
func (s *Store) Authorities(context.Context) auth.AuthorityStore  { return &authorityStore{s} }
func (s *Store) Addresses(context.Context) auth.AddressStore      { return &addressStore{s} }
func (s *Store) ResetTokens(context.Context) auth.ResetTokenStore { return &resetTokenStore{s} }

// q adapts a $n query to the store's dialect.
func (s *Store) q(query string) string {
	if s.dialect == migrate.DialectSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// expectOne maps a zero-row write onto auth.ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
