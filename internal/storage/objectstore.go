// Package storage provides the object storage used for content blobs, build
// artifacts and live pointers.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrObjectNotFound is returned when a key has no object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectExists is returned by PutImmutable when the key is already taken.
	ErrObjectExists = errors.New("object already exists")
)

// PutOptions carries HTTP metadata stored with an object.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// ObjectStore is the minimal API the publish pipeline needs from storage.
// PutImmutable must never replace an existing object; PutMutable always does.
type ObjectStore interface {
	PutImmutable(ctx context.Context, key string, body []byte, opts PutOptions) error
	PutMutable(ctx context.Context, key string, body []byte, opts PutOptions) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PublicURL joins a store base URL and a key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}
