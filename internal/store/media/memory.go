package media

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps assets in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string]Asset)}
}

func (s *MemoryStore) Put(_ context.Context, asset Asset) error {
	asset.Data = append([]byte(nil), asset.Data...)
	s.mu.Lock()
	s.assets[asset.ID] = asset
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	asset.Data = append([]byte(nil), asset.Data...)
	return asset, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, asset := range s.assets {
		if asset.CreatedAt.Before(before) {
			delete(s.assets, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
