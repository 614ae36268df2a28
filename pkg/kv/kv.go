package kv

import "context"

// Store defines the interface for a key-value store.
// Implementations of this interface can be swapped out,
// allowing for different storage backends (e.g., in-memory, Redis).
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a key-value pair, overwriting any previous value.
	// Returns an error wrapping ErrBackendUnavailable if the backend fails.
	Save(ctx context.Context, key, value string) error

	// Get retrieves the value associated with the given key.
	// Returns an error wrapping ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key from the store.
	// Returns an error wrapping ErrNotFound if the key does not exist.
	Delete(ctx context.Context, key string) error
}

// Taker is implemented by stores that can read and remove a key in a
// single atomic step.
type Taker interface {
	// Take removes the key and returns the value it held.
	// Returns an error wrapping ErrNotFound if the key does not exist.
	Take(ctx context.Context, key string) (string, error)
}
