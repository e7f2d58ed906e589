// Package redis stores ledger state blobs as plain Redis string values.
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// keyPrefix namespaces ledger keys so the instance can be shared.
const keyPrefix = "barbook:"

type Store struct {
	client *goredis.Client
}

func New(addr string, password string, db int) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, keyPrefix+key, data, 0).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
