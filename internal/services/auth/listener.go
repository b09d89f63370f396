package auth

import (
	"log/slog"

	"github.com/mcoot/playersync/internal/identity"
	"github.com/mcoot/playersync/internal/model"
)

// providerListener receives provider notifications on behalf of a Controller
type providerListener struct {
	c *Controller
}

var _ identity.Listener = (*providerListener)(nil)

func (l *providerListener) HandshakeCompleted(grant string) {
	c := l.c
	c.mu.Lock()
	if c.state != model.AuthStateSigningIn {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("ignoring handshake completion", slog.String("state", string(state)))
		return
	}
	gen := c.generation
	c.mu.Unlock()

	c.completeSignIn(gen, grant)
}

func (l *providerListener) SignInFailed(err error) {
	c := l.c
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	c.failSignIn(gen, err)
}

func (l *providerListener) SignedOut() {
	c := l.c
	c.mu.Lock()
	// A sign-out the controller started reports its own event
	if c.state != model.AuthStateSignedIn {
		c.mu.Unlock()
		return
	}
	c.generation++
	playerID := c.session.PlayerID
	c.state = model.AuthStateReady
	c.session = model.Session{}
	c.mu.Unlock()

	c.logger.Info("signed out by provider", slog.String("player_id", string(playerID)))
	c.emit(playerID, model.EventSignedOut, nil)
}

func (l *providerListener) Expired() {
	c := l.c
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	c.generation++
	playerID := c.session.PlayerID
	c.state = model.AuthStateReady
	c.session = model.Session{LastError: model.ErrSessionExpired.Error()}
	c.mu.Unlock()

	c.logger.Warn("session expired", slog.String("player_id", string(playerID)))
	c.emitAuthError(playerID, model.AuthErrorExpired, model.ErrSessionExpired)
}
