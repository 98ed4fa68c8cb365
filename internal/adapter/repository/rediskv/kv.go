// Package rediskv backs the durable kv store with redis, the server-profile
// choice for drafts and queued upload content.
package rediskv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"loan-intake-service/internal/domain/kv"
)

const namespace = "intake:"

type Store struct{ rdb *redis.Client }

func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

var _ kv.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	// No TTL: drafts and queued uploads live until explicitly cleared.
	return s.rdb.Set(ctx, namespace+key, value, 0).Err()
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, namespace+key).Err()
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, namespace+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val()[len(namespace):])
	}
	return out, iter.Err()
}
