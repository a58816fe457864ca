package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrExists is returned by Save when the key is already taken.
	ErrExists = errors.New("object already exists")
	// ErrNotFound is returned when no object is stored under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// ObjectStore defines the contract for saving, reading and removing binary
// objects. Save never overwrites: a second Save of the same key fails with
// ErrExists.
type ObjectStore interface {
	Save(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
