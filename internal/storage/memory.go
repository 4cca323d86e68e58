package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryObject is a stored payload with its metadata.
type MemoryObject struct {
	Body []byte
	PutOptions
}

// MemoryStore keeps objects in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
}

// NewMemoryStore constructs an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]MemoryObject)}
}

// PutImmutable stores body unless key is already present.
func (s *MemoryStore) PutImmutable(ctx context.Context, key string, body []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; ok {
		return ErrObjectExists
	}
	s.objects[key] = MemoryObject{Body: clone(body), PutOptions: opts}
	return nil
}

// PutMutable stores body, replacing any existing object.
func (s *MemoryStore) PutMutable(ctx context.Context, key string, body []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = MemoryObject{Body: clone(body), PutOptions: opts}
	return nil
}

// Get retrieves a copy of the stored payload.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return clone(obj.Body), nil
}

// Delete removes key if present.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// Object returns the stored object with its metadata.
func (s *MemoryStore) Object(key string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return MemoryObject{}, false
	}
	obj.Body = clone(obj.Body)
	return obj, true
}

// Keys lists stored keys with the given prefix in sorted order.
func (s *MemoryStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
