package credstore

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store; copies are returned so callers cannot mutate the slot.
type MemoryStore struct {
	mu         sync.RWMutex
	credential *StoredCredential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*StoredCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return nil, ErrNotFound
	}
	c := *s.credential
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, credential *StoredCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *credential
	s.credential = &c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = nil
	return nil
}
