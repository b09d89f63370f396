package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().DialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", model.ErrConnectivity, err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, playerID model.PlayerID, key string) (string, error) {
	value, err := s.client.Get(ctx, blobKey(playerID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrBlobNotFound
		}
		return "", fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return value, nil
}

func (s *Storage) Put(ctx context.Context, playerID model.PlayerID, key, value string) error {
	// A zero TTL keeps the key without expiry
	if err := s.client.Set(ctx, blobKey(playerID, key), value, s.cfg.BlobTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, playerID model.PlayerID, key string) error {
	if err := s.client.Del(ctx, blobKey(playerID, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return nil
}

// TTL returns the remaining lifetime of a blob, zero if it never expires
func (s *Storage) TTL(ctx context.Context, playerID model.PlayerID, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, blobKey(playerID, key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
