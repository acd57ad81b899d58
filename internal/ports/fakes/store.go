package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
)

// Store is an in-memory area that can be switched off to simulate a backend
// that refuses access.
type Store struct {
	mu          sync.Mutex
	values      map[string]string
	unavailable bool
}

var _ ports.KeyValueStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{values: map[string]string{}}
}

func (s *Store) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return "", fmt.Errorf("get %q: %w", key, domain.ErrStorageUnavailable)
	}
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("get %q: %w", key, domain.ErrKeyNotFound)
	}
	return value, nil
}

func (s *Store) Put(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return fmt.Errorf("put %q: %w", key, domain.ErrStorageUnavailable)
	}
	s.values[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return fmt.Errorf("delete %q: %w", key, domain.ErrStorageUnavailable)
	}
	delete(s.values, key)
	return nil
}

// Snapshot copies the current contents, ignoring availability.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
