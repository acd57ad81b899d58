package ports

import "context"

// KeyValueStore is one persistence area. Get returns domain.ErrKeyNotFound
// (wrapped) for missing keys and domain.ErrStorageUnavailable (wrapped) when
// the backend cannot be reached.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
