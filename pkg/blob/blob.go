// Package blob stores raw extract files. Submissions are archived before
// any database work so a failed ingestion can always be replayed from the
// original bytes.
package blob

import (
	"context"
)

// Store is a flat byte store keyed by path.
type Store interface {
	// Get returns the object's bytes. Absent objects yield a
	// CodeBlobNotFound error so callers can tell "not uploaded yet"
	// apart from transport failures.
	Get(ctx context.Context, path string) ([]byte, error)

	// Put writes an object. With overwrite false an existing object is
	// left untouched and no error is returned.
	Put(ctx context.Context, path string, data []byte, overwrite bool) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the paths under a prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
