package model

import "time"

// AuthState is the lifecycle state of the authentication session
type AuthState string

const (
	AuthStateUninitialized AuthState = "uninitialized"
	AuthStateInitializing  AuthState = "initializing"
	AuthStateReady         AuthState = "ready" // initialized and signed out
	AuthStateSigningIn     AuthState = "signing_in"
	AuthStateSignedIn      AuthState = "signed_in"
	AuthStateSigningOut    AuthState = "signing_out"
	AuthStateError         AuthState = "error"
)

// Token is the result of exchanging a completed handshake with the provider
type Token struct {
	PlayerID    PlayerID
	AccessToken string
	ExpiresAt   time.Time
}

// Session is a read-only snapshot of the authentication session
type Session struct {
	State       AuthState
	PlayerID    PlayerID
	PlayerName  string
	AccessToken string
	ExpiresAt   time.Time
	SignedInAt  time.Time
	LastError   string
}

// IsSignedIn reports whether the session holds an authenticated player
func (s Session) IsSignedIn() bool {
	return s.State == AuthStateSignedIn
}
