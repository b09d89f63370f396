// Package identity defines the contract between the session controller and
// an external identity provider.
package identity

import (
	"context"

	"github.com/mcoot/playersync/internal/model"
)

// Provider is an external identity service. Calls may block on the network;
// completion of the sign-in handshake and provider-side session changes are
// pushed through the registered Listener.
type Provider interface {
	// Initialize bootstraps the provider. Failures wrap model.ErrInitialization
	// or model.ErrConnectivity.
	Initialize(ctx context.Context) error
	// SetListener registers the receiver of provider notifications
	SetListener(l Listener)

	// StartHandshake begins an interactive sign-in. It returns once the
	// handshake is under way; its result arrives via HandshakeCompleted or
	// SignInFailed.
	StartHandshake(ctx context.Context) error
	// ExchangeToken trades a completed handshake grant for an access token
	ExchangeToken(ctx context.Context, grant string) (model.Token, error)
	SignOut(ctx context.Context) error

	RenamePlayer(ctx context.Context, name string) error
	PlayerID() model.PlayerID
	// PlayerName reads the canonical display name from the provider
	PlayerName(ctx context.Context) (string, error)

	DeleteAccount(ctx context.Context) error
}

// Listener receives notifications pushed by a Provider. Callbacks may arrive
// on any goroutine at any time and may block while the receiver completes
// follow-up provider calls, so providers must not hold locks while calling them.
type Listener interface {
	HandshakeCompleted(grant string)
	SignInFailed(err error)
	SignedOut()
	Expired()
}
