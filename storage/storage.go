// Package storage defines the persistence collaborator for the store
// core. The core is agnostic to whether a backend keeps bytes in memory,
// on disk, or somewhere else entirely.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Storage interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
