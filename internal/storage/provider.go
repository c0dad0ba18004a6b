// Package storage defines the durable client-side key-value storage.
package storage

// Provider is the interface for durable client state (the signed-in identity,
// locally registered accounts).
type Provider interface {
	// Get returns the value stored under key, or an error wrapping apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set atomically replaces the value stored under key.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns every stored key.
	Keys() ([]string, error)
}
