// Package memory provides an in-process KVStore for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
)

var _ driven.KVStore = (*KVStore)(nil)

// KVStore keeps values in a map. Values are copied on the way in and out so
// callers cannot alias stored bytes.
type KVStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewKVStore returns an empty store.
func NewKVStore() *KVStore {
	return &KVStore{values: make(map[string][]byte)}
}

func (s *KVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *KVStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
