package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used in tests and local smoke runs.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory object store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		containers: make(map[string]map[string][]byte),
	}
}

// Get reads the full content of an object
func (s *MemoryStore) Get(ctx context.Context, container, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, ok := s.containers[container]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, name)
	}
	content, ok := objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, name)
	}

	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// Put creates or overwrites an object
func (s *MemoryStore) Put(ctx context.Context, container, name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.containers[container]
	if !ok {
		objects = make(map[string][]byte)
		s.containers[container] = objects
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	objects[name] = stored
	return nil
}

// Delete removes an object
func (s *MemoryStore) Delete(ctx context.Context, container, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.containers[container]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, name)
	}
	if _, ok := objects[name]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, name)
	}
	delete(objects, name)
	return nil
}

// EnsureContainer creates the container if absent
func (s *MemoryStore) EnsureContainer(ctx context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.containers[container]; !ok {
		s.containers[container] = make(map[string][]byte)
	}
	return nil
}
