package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playersync/internal/dependencies/mocks"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/services/progression"
	"github.com/mcoot/playersync/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	store       *mocks.MockStore
	provider    *mocks.MockProvider
	clock       *mocks.MockClock
	progression *progression.Synchronizer
	recorder    *testutil.EventRecorder
	controller  *Controller
	ctx         context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.store = mocks.NewMockStore()
	s.provider = mocks.NewMockProvider()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.progression = progression.New(s.store, progression.DefaultConfig(), s.clock, testutil.NopLogger())
	s.recorder = testutil.NewEventRecorder()
	s.controller = New(s.provider, s.progression, s.clock, testutil.NopLogger())
	s.controller.Subscribe(s.recorder.Record)
	s.ctx = context.Background()
}

func (s *ControllerSuite) initialize() {
	s.Require().NoError(s.controller.Initialize(s.ctx))
	s.Require().Equal(model.AuthStateReady, s.controller.State())
}

func (s *ControllerSuite) signIn() {
	s.initialize()
	s.provider.SetAutoComplete(true)
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	s.Require().Equal(model.AuthStateSignedIn, s.controller.State())
	s.controller.Wait()
	s.recorder.Reset()
}

func (s *ControllerSuite) seedProgression(p model.Progression) {
	blob, err := progression.Encode(p)
	s.Require().NoError(err)
	s.store.Seed("player-1", progression.DefaultKey, blob)
}

func (s *ControllerSuite) authErrors() []model.AuthErrorPayload {
	var out []model.AuthErrorPayload
	for _, e := range s.recorder.OfType(model.EventAuthError) {
		out = append(out, e.Payload.(model.AuthErrorPayload))
	}
	return out
}

// Initialize tests

func (s *ControllerSuite) TestInitializeMovesToReady() {
	s.Equal(model.AuthStateUninitialized, s.controller.State())

	s.initialize()

	s.True(s.provider.HasListener())
	s.Equal(1, s.provider.Calls(mocks.OpInitialize))
	s.Empty(s.recorder.Events())
}

func (s *ControllerSuite) TestInitializeFailureEntersErrorState() {
	s.provider.SetError(mocks.OpInitialize, fmt.Errorf("%w: bad project", model.ErrInitialization))

	s.Require().NoError(s.controller.Initialize(s.ctx))

	s.Equal(model.AuthStateError, s.controller.State())
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorInitialization, errs[0].Kind)
	s.Contains(errs[0].Message, "bad project")
}

func (s *ControllerSuite) TestInitializeCanBeRetriedAfterFailure() {
	s.provider.SetError(mocks.OpInitialize, model.ErrConnectivity)
	s.Require().NoError(s.controller.Initialize(s.ctx))
	s.provider.SetError(mocks.OpInitialize, nil)

	s.initialize()

	s.Equal(2, s.provider.Calls(mocks.OpInitialize))
}

func (s *ControllerSuite) TestInitializeTwiceIsRejected() {
	s.initialize()

	s.ErrorIs(s.controller.Initialize(s.ctx), model.ErrInvalidTransition)
	s.Equal(1, s.provider.Calls(mocks.OpInitialize))
}

// BeginSignIn tests

func (s *ControllerSuite) TestBeginSignInBeforeInitializeReportsError() {
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.Equal(model.AuthStateUninitialized, s.controller.State())
	s.Equal(0, s.provider.Calls(mocks.OpStartHandshake))
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorInitialization, errs[0].Kind)
	s.Equal(model.ErrNotInitialized.Error(), errs[0].Message)
}

func (s *ControllerSuite) TestBeginSignInWaitsForHandshake() {
	s.initialize()

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.Equal(model.AuthStateSigningIn, s.controller.State())
	s.Equal(1, s.provider.Calls(mocks.OpStartHandshake))
	s.Equal(0, s.provider.Calls(mocks.OpExchangeToken))
	s.Empty(s.recorder.Events())
}

func (s *ControllerSuite) TestHandshakeCompletionSignsIn() {
	s.initialize()
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.provider.CompleteHandshake("grant-1")

	s.Equal(model.AuthStateSignedIn, s.controller.State())
	s.True(s.controller.IsAuthenticated())
	s.Equal(model.PlayerID("player-1"), s.controller.PlayerID())

	session := s.controller.Session()
	s.Equal("Alice", session.PlayerName)
	s.Equal("access-grant-1", session.AccessToken)
	s.Equal(s.clock.Now(), session.SignedInAt)

	signedIn := s.recorder.OfType(model.EventSignedIn)
	s.Require().Len(signedIn, 1)
	s.Equal(model.SignedInPayload{PlayerID: "player-1", PlayerName: "Alice"}, signedIn[0].Payload)
}

func (s *ControllerSuite) TestSignInLoadsProgression() {
	stored := model.NewProgression()
	stored.Level = 4
	s.seedProgression(stored)

	s.signIn()

	s.True(s.progression.IsLoaded())
	s.Equal(model.PlayerID("player-1"), s.progression.PlayerID())
	s.Equal(4, s.progression.Snapshot().Level)
}

func (s *ControllerSuite) TestSignInUsesDefaultNameWhenNameUnavailable() {
	s.provider.SetError(mocks.OpPlayerName, model.ErrConnectivity)

	s.signIn()

	s.Equal(model.DefaultPlayerName, s.controller.Session().PlayerName)
}

func (s *ControllerSuite) TestBeginSignInWhileSignedInIsRejected() {
	s.signIn()

	s.ErrorIs(s.controller.BeginSignIn(s.ctx), model.ErrInvalidTransition)

	s.Equal(model.AuthStateSignedIn, s.controller.State())
	s.Equal(1, s.provider.Calls(mocks.OpStartHandshake))
	s.Empty(s.recorder.Events())
}

func (s *ControllerSuite) TestBeginSignInWhileSigningInIsRejected() {
	s.initialize()
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.ErrorIs(s.controller.BeginSignIn(s.ctx), model.ErrInvalidTransition)
	s.Equal(1, s.provider.Calls(mocks.OpStartHandshake))
}

func (s *ControllerSuite) TestHandshakeStartFailureReturnsToReady() {
	s.initialize()
	s.provider.SetError(mocks.OpStartHandshake, model.ErrConnectivity)

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.Equal(model.AuthStateReady, s.controller.State())
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorConnectivity, errs[0].Kind)
}

func (s *ControllerSuite) TestProviderSignInFailureReturnsToReady() {
	s.initialize()
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.provider.FailSignIn(fmt.Errorf("%w: user cancelled", model.ErrAuthentication))

	s.Equal(model.AuthStateReady, s.controller.State())
	s.Contains(s.controller.Session().LastError, "user cancelled")
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorAuthentication, errs[0].Kind)
}

func (s *ControllerSuite) TestExchangeFailureKindsShareControlFlow() {
	for _, tt := range []struct {
		err  error
		kind model.AuthErrorKind
	}{
		{model.ErrAuthentication, model.AuthErrorAuthentication},
		{model.ErrConnectivity, model.AuthErrorConnectivity},
		{errors.New("something else"), model.AuthErrorAuthentication},
	} {
		s.SetupTest()
		s.initialize()
		s.provider.SetError(mocks.OpExchangeToken, tt.err)
		s.Require().NoError(s.controller.BeginSignIn(s.ctx))

		s.provider.CompleteHandshake("grant")
		s.controller.Wait()

		s.Equal(model.AuthStateReady, s.controller.State())
		s.Empty(s.recorder.OfType(model.EventSignedIn))
		s.False(s.progression.IsLoaded())
		errs := s.authErrors()
		s.Require().Len(errs, 1)
		s.Equal(tt.kind, errs[0].Kind)
	}
}

func (s *ControllerSuite) TestSignInCanBeRetriedAfterFailure() {
	s.initialize()
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	s.provider.FailSignIn(model.ErrAuthentication)

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	s.provider.CompleteHandshake("grant")

	s.Equal(model.AuthStateSignedIn, s.controller.State())
	s.Equal(2, s.provider.Calls(mocks.OpStartHandshake))
}

func (s *ControllerSuite) TestLateHandshakeCompletionIsIgnored() {
	s.initialize()

	s.provider.CompleteHandshake("grant")

	s.Equal(model.AuthStateReady, s.controller.State())
	s.Equal(0, s.provider.Calls(mocks.OpExchangeToken))
	s.Empty(s.recorder.Events())
}

func (s *ControllerSuite) TestExpiryDuringExchangeDiscardsResult() {
	s.initialize()
	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	s.provider.HoldExchange()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.provider.CompleteHandshake("grant")
	}()
	s.Eventually(func() bool {
		return s.provider.Calls(mocks.OpExchangeToken) == 1
	}, time.Second, time.Millisecond)

	s.provider.PushExpired()
	s.provider.ReleaseExchange()
	<-done
	s.controller.Wait()

	s.Equal(model.AuthStateReady, s.controller.State())
	s.Empty(s.recorder.OfType(model.EventSignedIn))
	s.False(s.progression.IsLoaded())
}

// SignOut tests

func (s *ControllerSuite) TestSignOut() {
	s.signIn()

	s.Require().NoError(s.controller.SignOut(s.ctx))

	s.Equal(model.AuthStateReady, s.controller.State())
	s.False(s.controller.IsAuthenticated())
	s.Equal(model.PlayerID(""), s.controller.PlayerID())
	s.Equal(1, s.provider.Calls(mocks.OpSignOut))
	s.Equal([]model.EventType{model.EventSignedOut}, s.recorder.Types())
	s.Equal(model.PlayerID("player-1"), s.recorder.Events()[0].PlayerID)
}

func (s *ControllerSuite) TestSignOutClearsSessionWhenProviderFails() {
	s.signIn()
	s.provider.SetError(mocks.OpSignOut, model.ErrConnectivity)

	s.Require().NoError(s.controller.SignOut(s.ctx))

	s.Equal(model.AuthStateReady, s.controller.State())
	s.Empty(s.controller.Session().AccessToken)
	s.Len(s.recorder.OfType(model.EventSignedOut), 1)
	s.Empty(s.recorder.OfType(model.EventAuthError))
}

func (s *ControllerSuite) TestSignOutWhenNotSignedInIsRejected() {
	s.initialize()

	s.ErrorIs(s.controller.SignOut(s.ctx), model.ErrInvalidTransition)
	s.Equal(0, s.provider.Calls(mocks.OpSignOut))
}

func (s *ControllerSuite) TestSignOutDuringPendingSave() {
	s.seedProgression(model.NewProgression())
	s.signIn()
	s.store.HoldPuts()

	s.Require().True(s.progression.AddExperience(40))
	select {
	case <-s.store.PutStarted():
	case <-time.After(time.Second):
		s.FailNow("save never started")
	}
	atCall := s.progression.Snapshot()

	s.Require().NoError(s.controller.SignOut(s.ctx))
	s.Len(s.recorder.OfType(model.EventSignedOut), 1)

	s.store.ReleasePuts()
	s.Require().NoError(s.progression.Flush(s.ctx))

	blob, ok := s.store.Blob("player-1", progression.DefaultKey)
	s.Require().True(ok)
	stored, err := progression.Decode(blob)
	s.Require().NoError(err)
	s.Equal(atCall, stored)
}

func (s *ControllerSuite) TestSwitchingAccountsDoesNotWriteToPreviousPlayer() {
	s.signIn()
	s.Require().True(s.progression.AddExperience(10))
	s.Require().NoError(s.progression.Flush(s.ctx))
	before, ok := s.store.Blob("player-1", progression.DefaultKey)
	s.Require().True(ok)

	s.Require().NoError(s.controller.SignOut(s.ctx))
	s.provider.SetPlayer("player-2", "Bea")
	for len(s.store.PutStarted()) > 0 {
		<-s.store.PutStarted()
	}
	s.store.HoldPuts()

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	select {
	case <-s.store.PutStarted():
	case <-time.After(time.Second):
		s.FailNow("bootstrap write never started")
	}

	s.Equal(model.AuthStateSignedIn, s.controller.State())
	s.False(s.progression.AddExperience(40))
	s.False(s.progression.UseSkillPoint("strength"))

	s.store.ReleasePuts()
	s.controller.Wait()
	s.Require().NoError(s.progression.Flush(s.ctx))

	after, ok := s.store.Blob("player-1", progression.DefaultKey)
	s.Require().True(ok)
	s.Equal(before, after)
	s.Equal(model.NewProgression(), s.progression.Snapshot())

	s.True(s.progression.AddExperience(40))
	s.Require().NoError(s.progression.Flush(s.ctx))
	_, ok = s.store.Blob("player-2", progression.DefaultKey)
	s.True(ok)
}

func (s *ControllerSuite) TestWaitBlocksUntilLoadFinishes() {
	s.initialize()
	s.store.HoldPuts()
	s.provider.SetAutoComplete(true)

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	<-s.store.PutStarted()

	waited := make(chan struct{})
	go func() {
		s.controller.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		s.FailNow("Wait returned while the load was running")
	case <-time.After(50 * time.Millisecond):
	}

	s.store.ReleasePuts()
	select {
	case <-waited:
	case <-time.After(time.Second):
		s.FailNow("Wait did not return after the load finished")
	}
	s.True(s.progression.IsLoaded())
}

func (s *ControllerSuite) TestWaitConcurrentWithSignIn() {
	s.initialize()
	s.provider.SetAutoComplete(true)

	stop := make(chan struct{})
	waiters := make(chan struct{})
	go func() {
		defer close(waiters)
		for {
			select {
			case <-stop:
				return
			default:
				s.controller.Wait()
			}
		}
	}()

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))
	close(stop)
	<-waiters
	s.controller.Wait()

	s.Equal(model.AuthStateSignedIn, s.controller.State())
	s.True(s.progression.IsLoaded())
}

func (s *ControllerSuite) TestProviderSignedOutEndsSession() {
	s.signIn()

	s.provider.PushSignedOut()

	s.Equal(model.AuthStateReady, s.controller.State())
	s.Len(s.recorder.OfType(model.EventSignedOut), 1)
}

func (s *ControllerSuite) TestProviderSignedOutAfterLocalSignOutIsIgnored() {
	s.signIn()
	s.Require().NoError(s.controller.SignOut(s.ctx))

	s.provider.PushSignedOut()

	s.Len(s.recorder.OfType(model.EventSignedOut), 1)
}

// Expiry tests

func (s *ControllerSuite) TestExpiryReturnsToReady() {
	s.signIn()

	s.provider.PushExpired()

	s.Equal(model.AuthStateReady, s.controller.State())
	s.False(s.controller.IsAuthenticated())
	s.Equal(model.ErrSessionExpired.Error(), s.controller.Session().LastError)
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorExpired, errs[0].Kind)
	s.Equal(model.ErrSessionExpired.Error(), errs[0].Message)
}

func (s *ControllerSuite) TestExpiryBeforeInitializeIsIgnored() {
	s.provider.SetListener(&providerListener{c: s.controller})

	s.provider.PushExpired()

	s.Equal(model.AuthStateUninitialized, s.controller.State())
	s.Empty(s.recorder.Events())
}

func (s *ControllerSuite) TestSignInAfterExpiry() {
	s.signIn()
	s.provider.PushExpired()

	s.Require().NoError(s.controller.BeginSignIn(s.ctx))

	s.Equal(model.AuthStateSignedIn, s.controller.State())
}

// UpdateName tests

func (s *ControllerSuite) TestUpdateName() {
	s.signIn()

	s.Require().NoError(s.controller.UpdateName(s.ctx, "Bob"))

	s.Equal("Bob", s.controller.Session().PlayerName)
	updated := s.recorder.OfType(model.EventNameUpdated)
	s.Require().Len(updated, 1)
	s.Equal(model.NameUpdatedPayload{Name: "Bob"}, updated[0].Payload)

	s.Equal("Bob", s.progression.Snapshot().PlayerName)
	s.Require().NoError(s.progression.Flush(s.ctx))
}

func (s *ControllerSuite) TestUpdateNameFailureReportsRenameError() {
	s.signIn()
	s.provider.SetError(mocks.OpRenamePlayer, errors.New("name taken"))

	s.Require().NoError(s.controller.UpdateName(s.ctx, "Bob"))

	s.Equal("Alice", s.controller.Session().PlayerName)
	s.Empty(s.recorder.OfType(model.EventNameUpdated))
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorRename, errs[0].Kind)
	s.Equal(model.DefaultPlayerName, s.progression.Snapshot().PlayerName)
}

func (s *ControllerSuite) TestUpdateNameRejectsEmpty() {
	s.signIn()

	s.ErrorIs(s.controller.UpdateName(s.ctx, "  "), model.ErrInvalidName)
	s.Equal(0, s.provider.Calls(mocks.OpRenamePlayer))
}

func (s *ControllerSuite) TestUpdateNameRequiresSignIn() {
	s.initialize()

	s.ErrorIs(s.controller.UpdateName(s.ctx, "Bob"), model.ErrInvalidTransition)
}

// DeleteAccount tests

func (s *ControllerSuite) TestDeleteAccount() {
	s.seedProgression(model.NewProgression())
	s.signIn()

	s.Require().NoError(s.controller.DeleteAccount(s.ctx))

	s.Equal(model.AuthStateReady, s.controller.State())
	s.Equal(1, s.provider.Calls(mocks.OpDeleteAccount))
	s.Len(s.recorder.OfType(model.EventSignedOut), 1)
	_, ok := s.store.Blob("player-1", progression.DefaultKey)
	s.False(ok)
	s.False(s.progression.IsLoaded())
}

func (s *ControllerSuite) TestDeleteAccountFailureKeepsSession() {
	s.signIn()
	s.provider.SetError(mocks.OpDeleteAccount, model.ErrConnectivity)

	s.Require().NoError(s.controller.DeleteAccount(s.ctx))

	s.Equal(model.AuthStateSignedIn, s.controller.State())
	s.True(s.progression.IsLoaded())
	errs := s.authErrors()
	s.Require().Len(errs, 1)
	s.Equal(model.AuthErrorAccount, errs[0].Kind)
}

func (s *ControllerSuite) TestDeleteAccountRequiresSignIn() {
	s.initialize()

	s.ErrorIs(s.controller.DeleteAccount(s.ctx), model.ErrInvalidTransition)
}

// Subscription tests

func (s *ControllerSuite) TestUnsubscribeStopsDelivery() {
	other := testutil.NewEventRecorder()
	h := s.controller.Subscribe(other.Record)
	s.Require().True(s.controller.Unsubscribe(h))

	s.signIn()

	s.Empty(other.Events())
}
