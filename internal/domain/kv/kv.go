// Package kv abstracts the local durable store used for draft snapshots and
// queued upload content. Implementations: redis (server profile) and gorm
// over sqlite/mysql (embedded profile).
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Keys returns every stored key with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
