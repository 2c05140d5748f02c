// Package storage provides the blob stores the image pipeline and the media uploads write to.
//
// Two backends are wired at runtime: a public disk for images (Local) and a remote
// object store for large media (S3 or GCS). Memory is an in-process store for tests.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by reads of paths the backend does not hold.
var ErrNotFound = errors.New("storage: object not found")

// Backend is a blob store addressed by slash-separated relative paths.
type Backend interface {
	// Exists reports whether path holds an object.
	Exists(ctx context.Context, path string) (bool, error)
	// Put writes data under path, overwriting silently.
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// Get reads the whole object. Missing paths return ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete removes path. Missing paths are a no-op.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for path. It never performs I/O.
	URL(path string) string
	// Size returns the object size in bytes.
	Size(ctx context.Context, path string) (int64, error)
	// LastModified returns the object modification time.
	LastModified(ctx context.Context, path string) (time.Time, error)
}

// cleanKey normalizes a path into an object key without leading slash.
func cleanKey(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// joinURL joins a public base URL and an object key with exactly one slash.
func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return strings.TrimRight(base, "/") + "/" + key
}
