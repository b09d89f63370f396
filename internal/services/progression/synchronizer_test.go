package progression

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playersync/internal/dependencies/mocks"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/testutil"
)

const testPlayer = model.PlayerID("player-1")

type SynchronizerSuite struct {
	suite.Suite
	store    *mocks.MockStore
	clock    *mocks.MockClock
	recorder *testutil.EventRecorder
	sync     *Synchronizer
	ctx      context.Context
}

func TestSynchronizerSuite(t *testing.T) {
	suite.Run(t, new(SynchronizerSuite))
}

func (s *SynchronizerSuite) SetupTest() {
	s.store = mocks.NewMockStore()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.recorder = testutil.NewEventRecorder()
	s.sync = New(s.store, DefaultConfig(), s.clock, testutil.NopLogger())
	s.sync.Subscribe(s.recorder.Record)
	s.ctx = context.Background()
}

func (s *SynchronizerSuite) seed(p model.Progression) {
	blob, err := Encode(p)
	s.Require().NoError(err)
	s.store.Seed(testPlayer, DefaultKey, blob)
}

func (s *SynchronizerSuite) loadSeeded(p model.Progression) {
	s.seed(p)
	s.Require().Equal(model.LoadOutcomeStored, s.sync.Load(s.ctx, testPlayer))
	s.recorder.Reset()
}

func (s *SynchronizerSuite) storedProgression() model.Progression {
	blob, ok := s.store.Blob(testPlayer, DefaultKey)
	s.Require().True(ok)
	p, err := Decode(blob)
	s.Require().NoError(err)
	return p
}

// Load tests

func (s *SynchronizerSuite) TestLoadStoredReplacesModel() {
	stored := model.NewProgression()
	stored.PlayerName = "Alice"
	stored.Level = 4
	stored.Experience = 120
	s.seed(stored)

	outcome := s.sync.Load(s.ctx, testPlayer)

	s.Equal(model.LoadOutcomeStored, outcome)
	s.Equal(stored, s.sync.Snapshot())
	s.True(s.sync.IsLoaded())
	s.Equal(testPlayer, s.sync.PlayerID())
	s.Equal(0, s.store.PutCount())
}

func (s *SynchronizerSuite) TestLoadAbsentBootstrapsWithOnePut() {
	outcome := s.sync.Load(s.ctx, testPlayer)

	s.Equal(model.LoadOutcomeCreated, outcome)
	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.Equal(1, s.store.PutCount())
	s.Equal(model.NewProgression(), s.storedProgression())
}

func (s *SynchronizerSuite) TestLoadMalformedUsesDefaultsWithoutWriting() {
	s.store.Seed(testPlayer, DefaultKey, "{not json")

	outcome := s.sync.Load(s.ctx, testPlayer)

	s.Equal(model.LoadOutcomeDefaults, outcome)
	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.True(s.sync.IsLoaded())
	s.Equal(0, s.store.PutCount())

	blob, _ := s.store.Blob(testPlayer, DefaultKey)
	s.Equal("{not json", blob)
}

func (s *SynchronizerSuite) TestLoadFetchFailureUsesDefaults() {
	s.store.FailGets(model.ErrConnectivity)

	outcome := s.sync.Load(s.ctx, testPlayer)

	s.Equal(model.LoadOutcomeDefaults, outcome)
	s.Equal(model.LoadOutcomeDefaults, s.sync.LoadOutcome())
	s.True(s.sync.IsLoaded())
	s.Equal(0, s.store.PutCount())
}

func (s *SynchronizerSuite) TestLoadEmitsLoadedThenUpdated() {
	for _, setup := range []func(){
		func() {},
		func() { s.store.FailGets(model.ErrConnectivity) },
		func() { s.seed(model.NewProgression()) },
	} {
		s.SetupTest()
		setup()

		s.sync.Load(s.ctx, testPlayer)

		s.Equal([]model.EventType{model.EventProgressionLoaded, model.EventProgressionUpdated}, s.recorder.Types())
		s.Equal(testPlayer, s.recorder.Events()[0].PlayerID)
	}
}

func (s *SynchronizerSuite) TestLoadedPayloadCarriesOutcome() {
	s.sync.Load(s.ctx, testPlayer)

	loaded := s.recorder.OfType(model.EventProgressionLoaded)
	s.Require().Len(loaded, 1)
	s.Equal(model.ProgressionLoadedPayload{Outcome: model.LoadOutcomeCreated}, loaded[0].Payload)
}

// Mutations before load

func (s *SynchronizerSuite) TestMutationsIgnoredBeforeLoad() {
	s.False(s.sync.AddExperience(50))
	s.False(s.sync.UseSkillPoint("strength"))
	s.False(s.sync.UpdatePlayerName("Alice"))

	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.Empty(s.recorder.Events())
	s.Equal(0, s.store.PutCount())
}

func (s *SynchronizerSuite) TestMutationsIgnoredWhileLoadingAnotherPlayer() {
	start := model.NewProgression()
	start.Experience = 10
	start.AvailableSkillPoints = 1
	s.loadSeeded(start)
	before, ok := s.store.Blob(testPlayer, DefaultKey)
	s.Require().True(ok)

	s.store.HoldPuts()
	done := make(chan model.LoadOutcome, 1)
	go func() { done <- s.sync.Load(s.ctx, "player-2") }()
	<-s.store.PutStarted()

	s.False(s.sync.IsLoaded())
	s.False(s.sync.AddExperience(40))
	s.False(s.sync.UseSkillPoint("strength"))
	s.False(s.sync.UpdatePlayerName("Intruder"))
	s.sync.Reset()

	s.store.ReleasePuts()
	s.Equal(model.LoadOutcomeCreated, <-done)
	s.Require().NoError(s.sync.Flush(s.ctx))

	after, ok := s.store.Blob(testPlayer, DefaultKey)
	s.Require().True(ok)
	s.Equal(before, after)
	for _, put := range s.store.Puts() {
		s.Equal(model.PlayerID("player-2"), put.PlayerID)
	}
	s.Equal(model.NewProgression(), s.sync.Snapshot())
}

func (s *SynchronizerSuite) TestResetBeforeLoadEmitsButDoesNotSave() {
	s.sync.Reset()
	s.Require().NoError(s.sync.Flush(s.ctx))

	s.Len(s.recorder.Updates(model.UpdateReasonReset), 1)
	s.Equal(0, s.store.PutCount())
}

// AddExperience tests

func (s *SynchronizerSuite) TestAddExperienceCrossingTwoLevels() {
	s.loadSeeded(model.NewProgression())

	// 100 to leave level 1, 200 to leave level 2, 30 left over
	s.True(s.sync.AddExperience(330))

	p := s.sync.Snapshot()
	s.Equal(3, p.Level)
	s.Equal(30, p.Experience)
	s.Equal(6, p.AvailableSkillPoints)
	s.Equal(1, p.TotalClicks)

	updates := s.recorder.Updates(model.UpdateReasonExperience)
	s.Require().Len(updates, 1)
	s.Equal(2, updates[0].LevelsGained)
	s.Equal(p, updates[0].Progression)
}

func (s *SynchronizerSuite) TestAddExperienceIsVisibleBeforeSaveCompletes() {
	s.loadSeeded(model.NewProgression())
	s.store.HoldPuts()
	defer s.store.ReleasePuts()

	s.sync.AddExperience(30)
	s.sync.AddExperience(30)

	s.Equal(60, s.sync.Snapshot().Experience)
	s.Len(s.recorder.Updates(model.UpdateReasonExperience), 2)
}

func (s *SynchronizerSuite) TestAddExperienceIgnoresNonPositive() {
	s.loadSeeded(model.NewProgression())

	s.False(s.sync.AddExperience(0))
	s.False(s.sync.AddExperience(-10))

	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.Empty(s.recorder.Events())
}

func (s *SynchronizerSuite) TestAddExperienceRejectsOversizedGains() {
	start := model.NewProgression()
	start.Experience = 50
	s.loadSeeded(start)

	s.False(s.sync.AddExperience(math.MaxInt))
	s.False(s.sync.AddExperience(model.MaxExperienceGain + 1))
	s.True(s.sync.AddExperience(model.MaxExperienceGain))
	s.Require().NoError(s.sync.Flush(s.ctx))

	p := s.sync.Snapshot()
	s.Equal(1, p.TotalClicks)
	s.NoError(p.Validate())
	s.Equal(p, s.storedProgression())
}

func (s *SynchronizerSuite) TestAddExperiencePersists() {
	s.loadSeeded(model.NewProgression())

	s.sync.AddExperience(25)
	s.Require().NoError(s.sync.Flush(s.ctx))

	s.Equal(s.sync.Snapshot(), s.storedProgression())
	s.Len(s.recorder.Updates(model.UpdateReasonSaved), 1)
}

// UseSkillPoint tests

func (s *SynchronizerSuite) TestUseSkillPointEachStat() {
	for _, stat := range []model.Stat{model.StatStrength, model.StatDefense, model.StatAgility} {
		s.SetupTest()
		start := model.NewProgression()
		start.AvailableSkillPoints = 3
		s.loadSeeded(start)

		s.True(s.sync.UseSkillPoint(string(stat)))

		p := s.sync.Snapshot()
		s.Equal(6, p.StatValue(stat), stat)
		s.Equal(2, p.AvailableSkillPoints)
		s.Equal(16, p.Strength+p.Defense+p.Agility)
		s.Len(s.recorder.Updates(model.UpdateReasonSkillPoint), 1)
	}
}

func (s *SynchronizerSuite) TestUseSkillPointIsCaseInsensitive() {
	start := model.NewProgression()
	start.AvailableSkillPoints = 1
	s.loadSeeded(start)

	s.True(s.sync.UseSkillPoint("Agility"))
	s.Equal(6, s.sync.Snapshot().Agility)
}

func (s *SynchronizerSuite) TestUseSkillPointWithoutPointsChangesNothing() {
	s.loadSeeded(model.NewProgression())

	s.False(s.sync.UseSkillPoint("strength"))

	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.Empty(s.recorder.Events())
	s.Require().NoError(s.sync.Flush(s.ctx))
	s.Equal(0, s.store.PutCount())
}

func (s *SynchronizerSuite) TestUseSkillPointUnknownStatChangesNothing() {
	start := model.NewProgression()
	start.AvailableSkillPoints = 2
	s.loadSeeded(start)

	s.False(s.sync.UseSkillPoint("charisma"))

	s.Equal(start, s.sync.Snapshot())
	s.Empty(s.recorder.Events())
}

// UpdatePlayerName tests

func (s *SynchronizerSuite) TestUpdatePlayerName() {
	s.loadSeeded(model.NewProgression())

	s.True(s.sync.UpdatePlayerName("Alice"))
	s.Require().NoError(s.sync.Flush(s.ctx))

	s.Equal("Alice", s.sync.Snapshot().PlayerName)
	s.Equal("Alice", s.storedProgression().PlayerName)
	s.Len(s.recorder.Updates(model.UpdateReasonRename), 1)
}

func (s *SynchronizerSuite) TestUpdatePlayerNameKeepsNameAsGiven() {
	s.loadSeeded(model.NewProgression())

	s.True(s.sync.UpdatePlayerName(" Alice "))

	s.Equal(" Alice ", s.sync.Snapshot().PlayerName)
}

func (s *SynchronizerSuite) TestUpdatePlayerNameIgnoresEmpty() {
	s.loadSeeded(model.NewProgression())

	s.False(s.sync.UpdatePlayerName(""))
	s.False(s.sync.UpdatePlayerName("   "))

	s.Equal(model.DefaultPlayerName, s.sync.Snapshot().PlayerName)
	s.Empty(s.recorder.Events())
}

// Reset tests

func (s *SynchronizerSuite) TestResetRestoresDefaultsAndSaves() {
	start := model.NewProgression()
	start.Level = 9
	start.TotalClicks = 400
	s.loadSeeded(start)

	s.sync.Reset()
	s.Require().NoError(s.sync.Flush(s.ctx))

	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.Equal(model.NewProgression(), s.storedProgression())
	s.Len(s.recorder.Updates(model.UpdateReasonReset), 1)
}

// Save tests

func (s *SynchronizerSuite) TestSaveThenLoadRoundTrips() {
	s.sync.Load(s.ctx, testPlayer)
	s.sync.AddExperience(730)
	s.sync.UseSkillPoint("defense")
	s.sync.UpdatePlayerName("Alice")
	s.Require().NoError(s.sync.Save(s.ctx))
	before := s.sync.Snapshot()

	restarted := New(s.store, DefaultConfig(), s.clock, testutil.NopLogger())
	outcome := restarted.Load(s.ctx, testPlayer)

	s.Equal(model.LoadOutcomeStored, outcome)
	s.Equal(before, restarted.Snapshot())
}

func (s *SynchronizerSuite) TestSaveBeforeLoadFails() {
	s.ErrorIs(s.sync.Save(s.ctx), model.ErrNotLoaded)
}

func (s *SynchronizerSuite) TestSaveFailureIsAbsorbed() {
	s.loadSeeded(model.NewProgression())
	failure := errors.New("store unavailable")
	s.store.FailNextPuts(failure)

	s.True(s.sync.AddExperience(10))

	s.ErrorIs(s.sync.Flush(s.ctx), failure)
	s.Equal(10, s.sync.Snapshot().Experience)
	s.Empty(s.recorder.Updates(model.UpdateReasonSaved))
	s.Equal(1, s.store.PutCount())
}

func (s *SynchronizerSuite) TestSaveRetriesWhenConfigured() {
	cfg := DefaultConfig()
	cfg.SaveAttempts = 3
	cfg.RetryDelay = time.Millisecond
	s.sync = New(s.store, cfg, s.clock, testutil.NopLogger())
	s.loadSeeded(model.NewProgression())
	s.store.FailNextPuts(model.ErrConnectivity, model.ErrConnectivity)

	s.Require().NoError(s.sync.Save(s.ctx))

	s.Equal(3, s.store.PutCount())
}

func (s *SynchronizerSuite) TestSaveGivesUpAfterLastAttempt() {
	cfg := DefaultConfig()
	cfg.SaveAttempts = 2
	cfg.RetryDelay = time.Millisecond
	s.sync = New(s.store, cfg, s.clock, testutil.NopLogger())
	s.loadSeeded(model.NewProgression())
	s.store.FailNextPuts(model.ErrConnectivity, model.ErrConnectivity, model.ErrConnectivity)

	s.ErrorIs(s.sync.Save(s.ctx), model.ErrConnectivity)
	s.Equal(2, s.store.PutCount())
}

func (s *SynchronizerSuite) TestSavesCoalesceWhileWriteInFlight() {
	s.loadSeeded(model.NewProgression())
	s.store.HoldPuts()

	s.sync.AddExperience(10)
	select {
	case <-s.store.PutStarted():
	case <-time.After(time.Second):
		s.FailNow("first save never started")
	}
	for i := 0; i < 4; i++ {
		s.sync.AddExperience(10)
	}
	s.store.ReleasePuts()
	s.Require().NoError(s.sync.Flush(s.ctx))

	puts := s.store.Puts()
	s.Require().Len(puts, 2)
	s.Equal(1, s.store.MaxConcurrentPuts())

	first, err := Decode(puts[0].Value)
	s.Require().NoError(err)
	s.Equal(10, first.Experience)
	s.Equal(50, s.storedProgression().Experience)
}

func (s *SynchronizerSuite) TestFlushHonoursContext() {
	s.loadSeeded(model.NewProgression())
	s.store.HoldPuts()
	defer s.store.ReleasePuts()
	s.sync.AddExperience(10)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()

	s.ErrorIs(s.sync.Flush(ctx), context.DeadlineExceeded)
}

// Forget tests

func (s *SynchronizerSuite) TestForgetDeletesBlobAndUnbinds() {
	start := model.NewProgression()
	start.Level = 3
	s.loadSeeded(start)

	s.Require().NoError(s.sync.Forget(s.ctx))

	_, ok := s.store.Blob(testPlayer, DefaultKey)
	s.False(ok)
	s.False(s.sync.IsLoaded())
	s.Equal(model.PlayerID(""), s.sync.PlayerID())
	s.Equal(model.NewProgression(), s.sync.Snapshot())
	s.Len(s.recorder.Updates(model.UpdateReasonForget), 1)
	s.False(s.sync.AddExperience(10))
}

func (s *SynchronizerSuite) TestForgetWaitsForQueuedWrites() {
	s.loadSeeded(model.NewProgression())
	s.store.HoldPuts()
	s.sync.AddExperience(10)

	done := make(chan error, 1)
	go func() { done <- s.sync.Forget(s.ctx) }()

	s.store.ReleasePuts()
	s.Require().NoError(<-done)

	_, ok := s.store.Blob(testPlayer, DefaultKey)
	s.False(ok)
}

func (s *SynchronizerSuite) TestForgetBeforeLoadFails() {
	s.ErrorIs(s.sync.Forget(s.ctx), model.ErrNotLoaded)
}

// Subscription tests

func (s *SynchronizerSuite) TestUnsubscribeStopsDelivery() {
	other := testutil.NewEventRecorder()
	h := s.sync.Subscribe(other.Record)
	s.True(s.sync.Unsubscribe(h))

	s.sync.Load(s.ctx, testPlayer)

	s.Empty(other.Events())
	s.NotEmpty(s.recorder.Events())
}

func (s *SynchronizerSuite) TestEventsUseClockTime() {
	s.sync.Load(s.ctx, testPlayer)

	for _, e := range s.recorder.Events() {
		s.Equal(s.clock.Now(), e.Timestamp)
	}
}
