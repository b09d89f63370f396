package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playersync/internal/dependencies/mocks"
	"github.com/mcoot/playersync/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.StoreSuite
	path    string
	clock   *mocks.MockClock
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "playersync.db")
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	cfg := DefaultConfig()
	cfg.Path = s.path
	store, err := New(cfg, s.clock)
	s.Require().NoError(err)

	s.storage = store
	s.Store = store
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestDataSurvivesReopen() {
	_ = s.storage.Put(s.Ctx, "player-1", "playerData", "blob")
	s.Require().NoError(s.storage.Close())

	cfg := DefaultConfig()
	cfg.Path = s.path
	reopened, err := New(cfg, s.clock)
	s.Require().NoError(err)
	s.storage = reopened

	value, err := reopened.Get(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	s.Equal("blob", value)
}

func (s *StorageSuite) TestUpdatedAtTracksClock() {
	_ = s.storage.Put(s.Ctx, "player-1", "playerData", "first")
	s.clock.Advance(time.Hour)
	_ = s.storage.Put(s.Ctx, "player-1", "playerData", "second")

	updated, err := s.storage.UpdatedAt(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), updated)
}

func (s *StorageSuite) TestInMemoryDatabase() {
	cfg := DefaultConfig()
	cfg.Path = ":memory:"
	store, err := New(cfg, s.clock)
	s.Require().NoError(err)
	defer func() { _ = store.Close() }()

	s.Require().NoError(store.Put(s.Ctx, "player-1", "playerData", "blob"))
	value, err := store.Get(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	s.Equal("blob", value)
}
