/*
Package directory implements the identity directory: registration, credential
verification, and profile lookup for authenticated identities.

The relay core consumes only the Resolver interface; the Postgres-backed
Store in this package is the production implementation.
*/
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no account exists for the requested key.
var ErrNotFound = errors.New("directory: user not found")

// ErrDuplicateEmail is returned when registering an email that is already taken.
var ErrDuplicateEmail = errors.New("directory: email already registered")

// ErrBadCredentials is returned when an email/password pair does not match an account.
var ErrBadCredentials = errors.New("directory: invalid credentials")

// Profile is the display profile associated with a user key.
type Profile struct {
	// Key is the stable user key (the account email) used by the connection registry.
	Key string

	// ID is the account's UUID.
	ID string

	// DisplayName is the name rendered into outbound envelopes.
	DisplayName string
}

// Resolver maps a user key to its display profile.
// This is the only directory operation the relay core depends on.
type Resolver interface {
	Resolve(ctx context.Context, userKey string) (*Profile, error)
}

// Service is the full directory surface used by the HTTP handlers.
type Service interface {
	Resolver

	// CreateUser registers a new account and returns its profile.
	CreateUser(ctx context.Context, displayName, email, password string) (*Profile, error)

	// Authenticate verifies an email/password pair and returns the matching profile.
	Authenticate(ctx context.Context, email, password string) (*Profile, error)
}
