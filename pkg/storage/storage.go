// Package storage keeps append-only object files, either in a local
// directory or under a bucket prefix on S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means another writer changed the object while Append was
	// rewriting it. The caller may retry.
	ErrConflict    = errors.New("concurrent modification")
	ErrInvalidPath = errors.New("invalid path")
)

// Storage is addressed by slash-separated relative paths.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	// Append adds data to the end of path, creating it when missing.
	Append(ctx context.Context, path string, data []byte) error
	// List returns the objects directly under dir, sorted. A missing dir is empty.
	List(ctx context.Context, dir string) ([]string, error)
}

// cleanPath normalises p and rejects paths that leave the storage root.
func cleanPath(p string) (string, error) {
	c := path.Clean(strings.TrimPrefix(p, "/"))
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%q: %w", p, ErrInvalidPath)
	}
	return c, nil
}
