// Package storage defines the durable key-value contract behind the session
// record and its adapters.
//
// Every adapter delivers change notifications for writes made by other
// handles (another process, another redis client, another in-memory handle).
// A handle's own writes are not echoed back to its watchers, the same way a
// browser only fires storage events in the tabs that did not write.
package storage

import "context"

// Change describes a write or removal observed on a key.
type Change struct {
	Key     string
	Value   []byte
	Removed bool
}

// KV is a durable key-value store with change notification.
type KV interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Watch streams changes made by other handles until ctx is done or the
	// store is closed, then closes the channel.
	Watch(ctx context.Context) (<-chan Change, error)

	// Close releases the store and ends every watch.
	Close() error
}

const watchBuffer = 16

func validKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, r := range key {
		if r == '/' || r == '\\' || r == 0 {
			return ErrInvalidKey
		}
	}
	if key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
