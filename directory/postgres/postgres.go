// Package postgres provides a PostgreSQL implementation of directory.Directory.
//
// Users are read from a configurable table with id, name and email columns;
// a NULL or empty email marks a user without a profile address.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	// Registers the "postgres" driver used by NewFromDB.
	_ "github.com/lib/pq"

	"github.com/courierkit/courier/directory"
)

// Default configuration values.
const (
	DefaultTable   = "users"
	DefaultTimeout = 10 * time.Second
)

// options holds PostgreSQL directory configuration.
type options struct {
	table   string
	timeout time.Duration
	logger  *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		table:   DefaultTable,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL directory.
type Option func(*options)

// WithTable sets the users table name. Default is "users".
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}

// WithTimeout sets the per-operation timeout. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Directory implements directory.Directory using PostgreSQL.
// The database handle is externally owned; access control is handled by the
// connection, so the per-call service token is ignored.
type Directory struct {
	db     *sqlx.DB
	opts   *options
	logger *slog.Logger
}

// Ensure Directory implements directory.Directory.
var _ directory.Directory = (*Directory)(nil)

// New creates a PostgreSQL directory with the provided database connection.
func New(db *sqlx.DB, opts ...Option) *Directory {
	o := newOptions(opts...)
	return &Directory{db: db, opts: o, logger: o.logger}
}

// NewFromDB creates a PostgreSQL directory from a standard sql.DB connection.
func NewFromDB(db *sql.DB, opts ...Option) *Directory {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// QueryUsersWithEmail returns every user with a non-empty email column.
func (d *Directory) QueryUsersWithEmail(ctx context.Context, _ string) ([]directory.User, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT id, COALESCE(name, '') AS name, email FROM %s WHERE email IS NOT NULL AND email <> ''`,
		d.opts.table)

	var users []directory.User
	if err := d.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("postgres query users: %w", err)
	}
	d.logger.Debug("queried users with email", "count", len(users))
	return users, nil
}

// Lookup returns the user with the given ID.
func (d *Directory) Lookup(ctx context.Context, id, _ string) (*directory.User, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT id, COALESCE(name, '') AS name, COALESCE(email, '') AS email FROM %s WHERE id = $1`,
		d.opts.table)

	var u directory.User
	if err := d.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, fmt.Errorf("postgres lookup %q: %w", id, err)
	}
	return &u, nil
}
