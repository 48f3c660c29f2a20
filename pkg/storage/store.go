package storage

import (
	"context"
)

// EventKind is the derived kind of a watch event (spec.md §4.1): a PUT with
// version 1 is ADD, a PUT with version > 1 is UPDATE, a DELETE is DELETE and
// carries the last-known value.
type EventKind string

const (
	EventAdd    EventKind = "ADD"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Entry is one (key, value, version) record returned by ReadPrefix/DeletePrefix.
type Entry struct {
	Key     string
	Value   []byte
	Version int64
}

// Event is one change delivered on a watch stream.
type Event struct {
	Kind    EventKind
	Key     string
	Value   []byte
	Version int64
}

// CancelFunc closes a watch stream's underlying connection; the iterator
// terminates with a clean end-of-stream (spec.md §5).
type CancelFunc func()

// Store is SkyShift's durable ordered key-value store (spec.md §4.1). Keys are
// kind-prefixed strings ("clusters/k1", "default/jobs/j1"); values are opaque
// bytes (JSON-encoded objects) to the store. The store is the only component
// that assigns or interprets resource_version.
type Store interface {
	// Write upserts key unconditionally, assigning it a new version. It never
	// fails on conflict.
	Write(ctx context.Context, key string, value []byte) (version int64, err error)

	// Update writes key, honoring expectedVersion as a compare-and-swap token
	// when non-nil: it succeeds only if the current version equals
	// *expectedVersion, otherwise it fails with a Conflict error carrying the
	// current version. It fails with NotFound if key is absent.
	Update(ctx context.Context, key string, value []byte, expectedVersion *int64) (version int64, err error)

	// Read returns (value, version) for key, or NotFound.
	Read(ctx context.Context, key string) (value []byte, version int64, err error)

	// ReadPrefix returns every entry whose key has the given prefix, in key
	// order.
	ReadPrefix(ctx context.Context, prefix string) ([]Entry, error)

	// Delete removes key, returning its last (value, version), or NotFound.
	Delete(ctx context.Context, key string) (value []byte, version int64, err error)

	// DeletePrefix removes every entry under prefix, returning the removed
	// entries.
	DeletePrefix(ctx context.Context, prefix string) ([]Entry, error)

	// Watch returns a lazy, infinite, restartable-by-resync sequence of change
	// events for keys under prefix. The returned channel is closed when cancel
	// is called or the store is closed.
	Watch(ctx context.Context, prefix string) (<-chan Event, CancelFunc, error)

	// Close releases the store's resources.
	Close() error
}
