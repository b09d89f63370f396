package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/playersync/internal/dependencies/clock"
	"github.com/mcoot/playersync/internal/events"
	"github.com/mcoot/playersync/internal/identity"
	"github.com/mcoot/playersync/internal/model"
)

// Progression is the part of the progression synchronizer the controller drives
type Progression interface {
	Load(ctx context.Context, playerID model.PlayerID) model.LoadOutcome
	UpdatePlayerName(name string) bool
	Forget(ctx context.Context) error
}

// Controller sequences provider initialization, sign-in, sign-out, expiry
// and renames. Outcomes are reported only through events; returned errors
// mean the call was not valid in the current state.
type Controller struct {
	provider    identity.Provider
	progression Progression
	clock       clock.Clock
	logger      *slog.Logger
	events      *events.Registry[model.Event]

	listenOnce sync.Once

	mu          sync.Mutex
	state       model.AuthState
	session     model.Session
	initialized bool
	// loads counts progression loads started by sign-in; idle is signalled
	// on c.mu when it drops to zero
	loads int
	idle  *sync.Cond
	// generation increases whenever a sign-in attempt is started or
	// abandoned, so late provider results can be recognised as stale
	generation uint64
}

// New creates a Controller in the uninitialized state
func New(provider identity.Provider, progression Progression, clk clock.Clock, logger *slog.Logger) *Controller {
	c := &Controller{
		provider:    provider,
		progression: progression,
		clock:       clk,
		logger:      logger.With(slog.String("component", "auth")),
		events:      events.NewRegistry[model.Event](),
		state:       model.AuthStateUninitialized,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Subscribe registers a callback for session events
func (c *Controller) Subscribe(fn func(model.Event)) events.Handle {
	return c.events.Subscribe(fn)
}

// Unsubscribe removes a callback registered with Subscribe
func (c *Controller) Unsubscribe(h events.Handle) bool {
	return c.events.Unsubscribe(h)
}

// Initialize bootstraps the provider. A provider failure leaves the
// controller in the error state, from which Initialize may be retried.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.AuthStateUninitialized && !(c.state == model.AuthStateError && !c.initialized) {
		c.mu.Unlock()
		return model.ErrInvalidTransition
	}
	c.state = model.AuthStateInitializing
	c.mu.Unlock()

	c.listenOnce.Do(func() {
		c.provider.SetListener(&providerListener{c: c})
	})

	if err := c.provider.Initialize(ctx); err != nil {
		c.mu.Lock()
		c.state = model.AuthStateError
		c.session.LastError = err.Error()
		c.mu.Unlock()

		c.logger.Error("provider initialization failed", slog.Any("error", err))
		c.emitAuthError("", model.AuthErrorInitialization, err)
		return nil
	}

	c.mu.Lock()
	c.state = model.AuthStateReady
	c.initialized = true
	c.session.LastError = ""
	c.mu.Unlock()

	c.logger.Info("provider initialized")
	return nil
}

// BeginSignIn starts the provider's sign-in handshake. The handshake has no
// timeout here; its result arrives through the provider listener.
func (c *Controller) BeginSignIn(ctx context.Context) error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		c.logger.Warn("sign-in requested before initialization")
		c.emitAuthError("", model.AuthErrorInitialization, model.ErrNotInitialized)
		return nil
	}
	if c.state != model.AuthStateReady && c.state != model.AuthStateError {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("rejecting sign-in", slog.String("state", string(state)))
		return model.ErrInvalidTransition
	}
	c.state = model.AuthStateSigningIn
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.logger.Info("sign-in started")

	if err := c.provider.StartHandshake(ctx); err != nil {
		c.failSignIn(gen, err)
	}
	return nil
}

// SignOut clears the local session and signs out of the provider. Local
// state is cleared even if the provider call fails.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.AuthStateSignedIn {
		c.mu.Unlock()
		return model.ErrInvalidTransition
	}
	c.state = model.AuthStateSigningOut
	c.generation++
	playerID := c.session.PlayerID
	c.mu.Unlock()

	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warn("provider sign-out failed",
			slog.String("player_id", string(playerID)),
			slog.Any("error", err),
		)
	}

	c.clearSession()
	c.logger.Info("signed out", slog.String("player_id", string(playerID)))
	c.emit(playerID, model.EventSignedOut, nil)
	return nil
}

// UpdateName renames the player at the provider, then re-reads the
// canonical name and passes it on to the progression
func (c *Controller) UpdateName(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return model.ErrInvalidName
	}

	c.mu.Lock()
	if c.state != model.AuthStateSignedIn {
		c.mu.Unlock()
		return model.ErrInvalidTransition
	}
	gen := c.generation
	playerID := c.session.PlayerID
	c.mu.Unlock()

	logger := c.logger.With(slog.String("player_id", string(playerID)))

	if err := c.provider.RenamePlayer(ctx, name); err != nil {
		logger.Warn("rename failed", slog.Any("error", err))
		c.emitAuthError(playerID, model.AuthErrorRename, err)
		return nil
	}

	canonical, err := c.provider.PlayerName(ctx)
	if err != nil || canonical == "" {
		canonical = name
	}

	c.mu.Lock()
	if gen != c.generation || c.state != model.AuthStateSignedIn {
		c.mu.Unlock()
		logger.Debug("session changed during rename")
		return nil
	}
	c.session.PlayerName = canonical
	c.mu.Unlock()

	logger.Info("player renamed", slog.String("name", canonical))
	c.emit(playerID, model.EventNameUpdated, model.NameUpdatedPayload{Name: canonical})
	c.progression.UpdatePlayerName(canonical)
	return nil
}

// DeleteAccount deletes the provider account and the player's stored
// progression, then ends the session
func (c *Controller) DeleteAccount(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.AuthStateSignedIn {
		c.mu.Unlock()
		return model.ErrInvalidTransition
	}
	c.state = model.AuthStateSigningOut
	c.generation++
	playerID := c.session.PlayerID
	c.mu.Unlock()

	logger := c.logger.With(slog.String("player_id", string(playerID)))

	if err := c.provider.DeleteAccount(ctx); err != nil {
		c.mu.Lock()
		if c.state == model.AuthStateSigningOut {
			c.state = model.AuthStateSignedIn
		}
		c.mu.Unlock()

		logger.Warn("account deletion failed", slog.Any("error", err))
		c.emitAuthError(playerID, model.AuthErrorAccount, err)
		return nil
	}

	// The post-sign-in load may still be running
	c.Wait()
	if err := c.progression.Forget(ctx); err != nil {
		logger.Warn("failed to forget progression", slog.Any("error", err))
	}

	c.clearSession()
	logger.Info("account deleted")
	c.emit(playerID, model.EventSignedOut, nil)
	return nil
}

// Wait blocks until progression loads started by sign-in have finished.
// It may be called concurrently with a sign-in that is completing.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.loads > 0 {
		c.idle.Wait()
	}
}

// State returns the current lifecycle state
func (c *Controller) State() model.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the current session
func (c *Controller) Session() model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	s.State = c.state
	return s
}

// IsAuthenticated reports whether a player is signed in
func (c *Controller) IsAuthenticated() bool {
	return c.State() == model.AuthStateSignedIn
}

// PlayerID returns the signed-in player, or empty
func (c *Controller) PlayerID() model.PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.PlayerID
}

// completeSignIn exchanges the handshake grant and finishes the attempt
// numbered gen, unless it has been superseded meanwhile
func (c *Controller) completeSignIn(gen uint64, grant string) {
	ctx := context.Background()

	token, err := c.provider.ExchangeToken(ctx, grant)
	if err != nil {
		c.failSignIn(gen, err)
		return
	}

	name, err := c.provider.PlayerName(ctx)
	if err != nil || name == "" {
		c.logger.Warn("could not read player name, using default",
			slog.String("player_id", string(token.PlayerID)),
		)
		name = model.DefaultPlayerName
	}

	c.mu.Lock()
	if gen != c.generation || c.state != model.AuthStateSigningIn {
		c.mu.Unlock()
		c.logger.Debug("discarding stale sign-in", slog.String("player_id", string(token.PlayerID)))
		return
	}
	now := c.clock.Now()
	c.state = model.AuthStateSignedIn
	c.session = model.Session{
		PlayerID:    token.PlayerID,
		PlayerName:  name,
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		SignedInAt:  now,
	}
	c.loads++
	c.mu.Unlock()

	go func() {
		defer c.loadDone()
		c.progression.Load(ctx, token.PlayerID)
	}()

	c.logger.Info("signed in",
		slog.String("player_id", string(token.PlayerID)),
		slog.String("player_name", name),
	)
	c.emit(token.PlayerID, model.EventSignedIn, model.SignedInPayload{
		PlayerID:   token.PlayerID,
		PlayerName: name,
	})
}

func (c *Controller) loadDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads--
	if c.loads == 0 {
		c.idle.Broadcast()
	}
}

func (c *Controller) failSignIn(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation || c.state != model.AuthStateSigningIn {
		c.mu.Unlock()
		c.logger.Debug("ignoring failure of stale sign-in", slog.Any("error", err))
		return
	}
	c.state = model.AuthStateReady
	c.generation++
	c.session.LastError = err.Error()
	c.mu.Unlock()

	c.logger.Warn("sign-in failed", slog.Any("error", err))
	c.emitAuthError("", signInErrorKind(err), err)
}

func (c *Controller) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = model.AuthStateReady
	c.session = model.Session{}
}

func (c *Controller) emitAuthError(playerID model.PlayerID, kind model.AuthErrorKind, err error) {
	c.emit(playerID, model.EventAuthError, model.AuthErrorPayload{
		Kind:    kind,
		Message: err.Error(),
	})
}

func (c *Controller) emit(playerID model.PlayerID, eventType model.EventType, payload any) {
	c.events.Emit(model.Event{
		Type:      eventType,
		Timestamp: c.clock.Now(),
		PlayerID:  playerID,
		Payload:   payload,
	})
}

// signInErrorKind labels a sign-in failure. Every kind is handled the same way.
func signInErrorKind(err error) model.AuthErrorKind {
	switch {
	case errors.Is(err, model.ErrConnectivity):
		return model.AuthErrorConnectivity
	case errors.Is(err, model.ErrSessionExpired):
		return model.AuthErrorExpired
	case errors.Is(err, model.ErrInitialization), errors.Is(err, model.ErrNotInitialized):
		return model.AuthErrorInitialization
	default:
		return model.AuthErrorAuthentication
	}
}
