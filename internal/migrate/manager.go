package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Dialects understood by Manager.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Manager applies the embedded schema migrations with goose.
type Manager struct {
	provider *goose.Provider
}

// Option configures Manager.
type Option func(*options)

type options struct {
	fsys    fs.FS
	verbose bool
}

// WithFS replaces the embedded migrations, mainly for tests.
func WithFS(fsys fs.FS) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithVerbose makes goose log each applied migration.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// Migrations returns the embedded migration files rooted at their directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewManager constructs a Manager for db in the given dialect.
func NewManager(db *sql.DB, dialect string, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: database is required")
	}
	o := options{fsys: Migrations()}
	for _, opt := range opts {
		opt(&o)
	}
	var d goose.Dialect
	switch dialect {
	case DialectPostgres:
		d = goose.DialectPostgres
	case DialectSQLite:
		d = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	p, err := goose.NewProvider(d, db, o.fsys, goose.WithVerbose(o.verbose))
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Manager{provider: p}, nil
}

// Up applies all pending migrations and returns the resulting version.
func (m *Manager) Up(ctx context.Context) (int64, error) {
	if _, err := m.provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	return m.provider.GetDBVersion(ctx)
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if _, err := m.provider.Down(ctx); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Entry is one line of Status output.
type Entry struct {
	Version int64
	Path    string
	Applied bool
}

// Status returns every known migration in version order.
func (m *Manager) Status(ctx context.Context) ([]Entry, error) {
	st, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]Entry, 0, len(st))
	for _, s := range st {
		out = append(out, Entry{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
