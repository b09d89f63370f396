package storage

import (
	"context"

	"github.com/mcoot/playersync/internal/model"
)

// Store is the remote per-player key-value store.
// Values are opaque serialized blobs.
type Store interface {
	// Get returns the blob stored under key, or model.ErrBlobNotFound
	Get(ctx context.Context, playerID model.PlayerID, key string) (string, error)
	Put(ctx context.Context, playerID model.PlayerID, key, value string) error
	Delete(ctx context.Context, playerID model.PlayerID, key string) error

	Close() error
}
