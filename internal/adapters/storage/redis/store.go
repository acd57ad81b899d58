// Package redis keeps the durable area in a Redis instance so several hosts can
// share one remembered session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "stayctl:"

type Store struct {
	client *goredis.Client
	prefix string
}

var _ ports.KeyValueStore = (*Store)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewStore(opts Options) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewStoreWithClient(client, opts.Prefix)
}

func NewStoreWithClient(client *goredis.Client, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", fmt.Errorf("redis key %q: %w", key, domain.ErrKeyNotFound)
		}
		return "", wrap("get", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return wrap("set", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return wrap("del", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func wrap(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("redis %s %q: %w", op, key, err)
	}
	return fmt.Errorf("redis %s %q: %w: %w", op, key, domain.ErrStorageUnavailable, err)
}
