package memory

import (
	"context"
	"sync"

	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	blobs map[blobKey]string
}

type blobKey struct {
	playerID model.PlayerID
	key      string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		blobs: make(map[blobKey]string),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, playerID model.PlayerID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.blobs[blobKey{playerID, key}]
	if !ok {
		return "", model.ErrBlobNotFound
	}
	return value, nil
}

func (s *Storage) Put(ctx context.Context, playerID model.PlayerID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[blobKey{playerID, key}] = value
	return nil
}

func (s *Storage) Delete(ctx context.Context, playerID model.PlayerID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, blobKey{playerID, key})
	return nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Len returns the number of stored blobs
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
