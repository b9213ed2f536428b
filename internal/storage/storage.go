// Package storage provides the durable key/value storage that backs a browser
// session.  Each browser session gets its own scope; the session token and
// user snapshot live side by side in that scope and are always written and
// cleared together.
package storage

import (
	"context"
	"errors"
)

// Keys used inside a session scope.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyFlash = "flash"
)

// ErrEmptyScope is returned by backends when asked for a scope without an id.
var ErrEmptyScope = errors.New("storage: empty session scope")

// Storage is the key/value view of a single browser session.  Set and Delete
// are all-or-nothing: either every key in the call is applied or none is.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend hands out per-session scopes over a shared store.
type Backend interface {
	Scope(sessionID string) Storage
	Close() error
}
