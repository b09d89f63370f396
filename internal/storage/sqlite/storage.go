// Package sqlite stores player blobs in a local SQLite database. It stands in
// for a cloud save service when running the client on a single machine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mcoot/playersync/internal/dependencies/clock"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_blobs (
	player_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (player_id, key)
)`

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db    *sql.DB
	clock clock.Clock
}

// New opens (creating if needed) the database at cfg.Path
func New(cfg Config, clk clock.Clock) (*Storage, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Storage{db: db, clock: clk}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, playerID model.PlayerID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM player_blobs WHERE player_id = ? AND key = ?`,
		string(playerID), key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrBlobNotFound
		}
		return "", fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return value, nil
}

func (s *Storage) Put(ctx context.Context, playerID model.PlayerID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_blobs (player_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (player_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(playerID), key, value, s.clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, playerID model.PlayerID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM player_blobs WHERE player_id = ? AND key = ?`,
		string(playerID), key,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return nil
}

// UpdatedAt returns when a blob was last written
func (s *Storage) UpdatedAt(ctx context.Context, playerID model.PlayerID, key string) (time.Time, error) {
	var millis int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM player_blobs WHERE player_id = ? AND key = ?`,
		string(playerID), key,
	).Scan(&millis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, model.ErrBlobNotFound
		}
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}
