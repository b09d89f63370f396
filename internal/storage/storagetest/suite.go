// Package storagetest holds the behaviour every Store backend must share.
package storagetest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
)

// StoreSuite runs the common Store contract against a backend.
// Embedding suites must set Store in SetupTest.
type StoreSuite struct {
	suite.Suite
	Store storage.Store
	Ctx   context.Context
}

func (s *StoreSuite) TestPutAndGet() {
	err := s.Store.Put(s.Ctx, "player-1", "playerData", `{"level":2}`)
	s.Require().NoError(err)

	value, err := s.Store.Get(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	s.Equal(`{"level":2}`, value)
}

func (s *StoreSuite) TestGetNotFound() {
	_, err := s.Store.Get(s.Ctx, "player-1", "playerData")
	s.ErrorIs(err, model.ErrBlobNotFound)
}

func (s *StoreSuite) TestPutOverwrites() {
	_ = s.Store.Put(s.Ctx, "player-1", "playerData", "first")
	err := s.Store.Put(s.Ctx, "player-1", "playerData", "second")
	s.Require().NoError(err)

	value, err := s.Store.Get(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	s.Equal("second", value)
}

func (s *StoreSuite) TestKeysAreScopedPerPlayer() {
	_ = s.Store.Put(s.Ctx, "player-1", "playerData", "one")
	_ = s.Store.Put(s.Ctx, "player-2", "playerData", "two")

	v1, err := s.Store.Get(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	v2, err := s.Store.Get(s.Ctx, "player-2", "playerData")
	s.Require().NoError(err)

	s.Equal("one", v1)
	s.Equal("two", v2)
}

func (s *StoreSuite) TestKeysAreScopedPerName() {
	_ = s.Store.Put(s.Ctx, "player-1", "playerData", "data")
	_ = s.Store.Put(s.Ctx, "player-1", "account", "acct")

	value, err := s.Store.Get(s.Ctx, "player-1", "account")
	s.Require().NoError(err)
	s.Equal("acct", value)
}

func (s *StoreSuite) TestDelete() {
	_ = s.Store.Put(s.Ctx, "player-1", "playerData", "data")

	err := s.Store.Delete(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)

	_, err = s.Store.Get(s.Ctx, "player-1", "playerData")
	s.ErrorIs(err, model.ErrBlobNotFound)
}

func (s *StoreSuite) TestDeleteMissingIsNoop() {
	err := s.Store.Delete(s.Ctx, "nobody", "playerData")
	s.NoError(err)
}

func (s *StoreSuite) TestEmptyValueRoundTrips() {
	err := s.Store.Put(s.Ctx, "player-1", "playerData", "")
	s.Require().NoError(err)

	value, err := s.Store.Get(s.Ctx, "player-1", "playerData")
	s.Require().NoError(err)
	s.Equal("", value)
}
