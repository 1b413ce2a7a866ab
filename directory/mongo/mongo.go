// Package mongo provides a MongoDB implementation of directory.Directory.
//
// User documents are expected to carry _id, name and email fields; users
// without an email simply have the field unset or empty.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/courierkit/courier/directory"
)

// Default configuration values.
const (
	DefaultDatabase   = "directory"
	DefaultCollection = "users"
	DefaultTimeout    = 10 * time.Second
)

// options holds MongoDB directory configuration.
type options struct {
	database   string
	collection string
	timeout    time.Duration
	logger     *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		database:   DefaultDatabase,
		collection: DefaultCollection,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a MongoDB directory.
type Option func(*options)

// WithDatabase sets the database name. Default is "directory".
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithCollection sets the collection name. Default is "users".
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
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

// Directory implements directory.Directory using MongoDB.
// The Mongo client is externally owned; access control is handled by the
// connection, so the per-call service token is ignored.
type Directory struct {
	collection *mongo.Collection
	opts       *options
	logger     *slog.Logger
}

// Ensure Directory implements directory.Directory.
var _ directory.Directory = (*Directory)(nil)

// New creates a MongoDB directory with the provided client.
func New(client *mongo.Client, opts ...Option) *Directory {
	o := newOptions(opts...)
	return &Directory{
		collection: client.Database(o.database).Collection(o.collection),
		opts:       o,
		logger:     o.logger,
	}
}

// QueryUsersWithEmail returns every user whose email field is set and non-empty.
func (d *Directory) QueryUsersWithEmail(ctx context.Context, _ string) ([]directory.User, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.timeout)
	defer cancel()

	filter := bson.M{"email": bson.M{"$exists": true, "$ne": ""}}
	cur, err := d.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo find users: %w", err)
	}
	defer cur.Close(ctx)

	var users []directory.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongo decode users: %w", err)
	}
	d.logger.Debug("queried users with email", "count", len(users))
	return users, nil
}

// Lookup returns the user with the given ID.
func (d *Directory) Lookup(ctx context.Context, id, _ string) (*directory.User, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.timeout)
	defer cancel()

	var u directory.User
	err := d.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, directory.ErrNotFound
		}
		return nil, fmt.Errorf("mongo lookup %q: %w", id, err)
	}
	return &u, nil
}
