package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by insert-if-absent writes that lost to an existing record.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict is returned when a conditional update keeps losing to concurrent writers.
	ErrConflict = errors.New("concurrent update conflict")
)

// Fields is a partial or full document body. Keys of a merge may be dotted
// paths ("progress.greetings-1") addressing nested maps.
type Fields map[string]any

// Document is a stored document with its commit version.
type Document struct {
	Collection string
	Key        string
	Data       Fields
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpdateFunc computes the fields to merge into the current document. cur is
// nil when the document does not exist. Returning nil fields skips the write.
type UpdateFunc func(cur *Document) (Fields, error)

// DocumentStore is a keyed document store with field-level merges and live
// subscriptions. Every write returns the version it committed; versions of a
// document only increase.
type DocumentStore interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, key string) (*Document, error)

	// Create inserts the document only if absent; otherwise ErrAlreadyExists.
	Create(ctx context.Context, collection, key string, data Fields) (int64, error)

	// MergeWrite merges fields into the document, creating it when absent.
	MergeWrite(ctx context.Context, collection, key string, fields Fields) (int64, error)

	// Update runs fn against the current version and commits its result only
	// if the document was not modified in between. fn may be called more than once.
	Update(ctx context.Context, collection, key string, fn UpdateFunc) (int64, error)

	// Subscribe delivers the current state, then every committed change, to fn
	// on a dedicated goroutine. The returned cancel func is safe to call from fn.
	Subscribe(ctx context.Context, collection, key string, fn func(Snapshot)) (cancel func(), err error)
}

// Lister enumerates document keys in a collection.
type Lister interface {
	Keys(ctx context.Context, collection string) ([]string, error)
}

// Account is a password credential record owned by the identity service.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Provider     string
	CreatedAt    time.Time
}

// AccountRepo persists identity accounts. Emails are unique.
type AccountRepo interface {
	// CreateAccount returns ErrAlreadyExists for a duplicate email.
	CreateAccount(ctx context.Context, a *Account) error

	// AccountByEmail returns ErrNotFound when absent.
	AccountByEmail(ctx context.Context, email string) (*Account, error)

	// AccountByID returns ErrNotFound when absent.
	AccountByID(ctx context.Context, id string) (*Account, error)

	// SetDisplayName updates an account's display name.
	SetDisplayName(ctx context.Context, id, name string) error
}
