package storage

import (
	"sync"

	"subskit/domain/repository"
)

type memoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore returns a process-local KeyValue. Nothing survives a
// restart; useful for tests and throwaway environments.
func NewMemoryStore() repository.KeyValue {
	return &memoryStore{values: map[string][]byte{}}
}

func (s *memoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

func (s *memoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored

	return nil
}

func (s *memoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}
