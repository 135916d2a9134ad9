// Package objectstore defines the object storage contract shared by the R2 and GCS
// backends and provides an in-memory implementation.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned (wrapped) when a requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Store abstracts the object I/O the split job needs.
//
// Implementations are safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns a reader for the object. The caller must close it.
	// Returns an error wrapping ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes the object, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying client.
	Close() error
}

// ReadAll fetches an object fully into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	r, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
