// Package store defines the host persistence contract the database
// facade depends on and ships a file-backed reference implementation
// of it.
package store

import "context"

// Store is the three-operation contract the facade relies on to load,
// persist, and erase a named snapshot blob. A host embedding the
// facade in a browser would back this with key/value storage; File
// backs it with a single local file per name, in the same spirit as
// the teacher's SavedGraph/LoadSavedGraph pattern.
//
// All three operations may suspend, and any error returned here is
// surfaced to the facade's caller as a PersistenceError — it never
// rolls back in-memory state.
type Store interface {
	// Load returns the snapshot blob last stored under name, or
	// (nil, false, nil) if none exists yet.
	Load(ctx context.Context, name string) (blob []byte, found bool, err error)

	// Store durably persists blob under name, replacing any prior
	// value.
	Store(ctx context.Context, name string, blob []byte) error

	// Erase removes any persisted blob under name. Erasing a name with
	// no stored blob is not an error.
	Erase(ctx context.Context, name string) error
}
