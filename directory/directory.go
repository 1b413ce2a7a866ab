// Package directory defines the user directory consumed by courier's
// recipient resolution, plus a map-based implementation for testing and
// simple deployments. Database-backed implementations live in the mongo
// and postgres subpackages.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Lookup when no user exists for the given ID.
var ErrNotFound = errors.New("directory: user not found")

// User contains directory information about a single user.
type User struct {
	// ID is the unique user identifier.
	ID string `db:"id" bson:"_id"`
	// Name is the display name of the user.
	Name string `db:"name" bson:"name"`
	// Email is the user's profile email address. May be empty.
	Email string `db:"email" bson:"email"`
}

// Directory resolves user identifiers to directory entries.
// Implementations must be safe for concurrent use.
//
// Every call carries a short-lived service token obtained from a
// TokenSource. Implementations backed by a connection that embeds its own
// credentials (e.g. a database client) may ignore the token.
type Directory interface {
	// QueryUsersWithEmail returns every user whose profile has a
	// non-empty email address.
	QueryUsersWithEmail(ctx context.Context, token string) ([]User, error)

	// Lookup returns the user with the given ID.
	// Returns ErrNotFound when no such user exists.
	Lookup(ctx context.Context, id, token string) (*User, error)
}

// TokenSource provides short-lived service credentials for calls to other
// internal services on the caller's own behalf.
type TokenSource interface {
	// ServiceToken returns a credential authorizing a call to the named
	// target service.
	ServiceToken(ctx context.Context, service string) (string, error)
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context, service string) (string, error)

// ServiceToken implements TokenSource.
func (f TokenFunc) ServiceToken(ctx context.Context, service string) (string, error) {
	return f(ctx, service)
}

// StaticToken returns a TokenSource that always yields the same token.
// Useful for development setups with a fixed API key.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context, string) (string, error) {
		return token, nil
	})
}
