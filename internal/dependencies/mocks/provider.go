package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/playersync/internal/identity"
	"github.com/mcoot/playersync/internal/model"
)

// ProviderOp names a MockProvider call for error injection and counting
type ProviderOp string

const (
	OpInitialize     ProviderOp = "initialize"
	OpStartHandshake ProviderOp = "start_handshake"
	OpExchangeToken  ProviderOp = "exchange_token"
	OpSignOut        ProviderOp = "sign_out"
	OpRenamePlayer   ProviderOp = "rename_player"
	OpPlayerName     ProviderOp = "player_name"
	OpDeleteAccount  ProviderOp = "delete_account"
)

// MockProvider is a scriptable identity provider. Tests drive the
// asynchronous side by calling CompleteHandshake, FailSignIn, PushSignedOut
// and PushExpired.
type MockProvider struct {
	mu           sync.Mutex
	listener     identity.Listener
	errs         map[ProviderOp]error
	calls        map[ProviderOp]int
	playerID     model.PlayerID
	playerName   string
	autoComplete bool
	exchangeGate chan struct{}
	tokenTTL     time.Duration
	now          func() time.Time
}

// Ensure MockProvider implements Provider
var _ identity.Provider = (*MockProvider)(nil)

// NewMockProvider creates a MockProvider that signs everyone in as player-1
func NewMockProvider() *MockProvider {
	return &MockProvider{
		errs:       make(map[ProviderOp]error),
		calls:      make(map[ProviderOp]int),
		playerID:   "player-1",
		playerName: "Alice",
		tokenTTL:   time.Hour,
		now:        time.Now,
	}
}

// SetError makes every later call to op fail with err. A nil err clears it.
func (m *MockProvider) SetError(op ProviderOp, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// SetPlayer sets the identity returned after sign-in
func (m *MockProvider) SetPlayer(id model.PlayerID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerID = id
	m.playerName = name
}

// SetAutoComplete makes StartHandshake complete the handshake immediately
func (m *MockProvider) SetAutoComplete(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoComplete = enabled
}

// HoldExchange makes ExchangeToken block until ReleaseExchange
func (m *MockProvider) HoldExchange() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeGate = make(chan struct{})
}

// ReleaseExchange unblocks held ExchangeToken calls
func (m *MockProvider) ReleaseExchange() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exchangeGate != nil {
		close(m.exchangeGate)
		m.exchangeGate = nil
	}
}

// Calls returns how many times op was called
func (m *MockProvider) Calls(op ProviderOp) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// HasListener reports whether a listener was registered
func (m *MockProvider) HasListener() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener != nil
}

// CompleteHandshake pushes a successful handshake to the listener
func (m *MockProvider) CompleteHandshake(grant string) {
	m.currentListener().HandshakeCompleted(grant)
}

// FailSignIn pushes a handshake failure to the listener
func (m *MockProvider) FailSignIn(err error) {
	m.currentListener().SignInFailed(err)
}

// PushSignedOut pushes a provider-side sign-out to the listener
func (m *MockProvider) PushSignedOut() {
	m.currentListener().SignedOut()
}

// PushExpired pushes a session expiry to the listener
func (m *MockProvider) PushExpired() {
	m.currentListener().Expired()
}

func (m *MockProvider) currentListener() identity.Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

func (m *MockProvider) record(op ProviderOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.errs[op]
}

// Initialize records the call
func (m *MockProvider) Initialize(ctx context.Context) error {
	return m.record(OpInitialize)
}

// SetListener stores the listener
func (m *MockProvider) SetListener(l identity.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// StartHandshake records the call and completes at once when auto-complete is on
func (m *MockProvider) StartHandshake(ctx context.Context) error {
	if err := m.record(OpStartHandshake); err != nil {
		return err
	}

	m.mu.Lock()
	auto := m.autoComplete
	m.mu.Unlock()

	if auto {
		m.CompleteHandshake("grant")
	}
	return nil
}

// ExchangeToken returns a token for the configured player
func (m *MockProvider) ExchangeToken(ctx context.Context, grant string) (model.Token, error) {
	err := m.record(OpExchangeToken)

	m.mu.Lock()
	gate := m.exchangeGate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.Token{}, ctx.Err()
		}
	}

	if err != nil {
		return model.Token{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Token{
		PlayerID:    m.playerID,
		AccessToken: "access-" + grant,
		ExpiresAt:   m.now().Add(m.tokenTTL),
	}, nil
}

// SignOut records the call
func (m *MockProvider) SignOut(ctx context.Context) error {
	return m.record(OpSignOut)
}

// RenamePlayer changes the canonical name unless an error is set
func (m *MockProvider) RenamePlayer(ctx context.Context, name string) error {
	if err := m.record(OpRenamePlayer); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerName = name
	return nil
}

// PlayerID returns the configured player ID
func (m *MockProvider) PlayerID() model.PlayerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerID
}

// PlayerName returns the canonical name unless an error is set
func (m *MockProvider) PlayerName(ctx context.Context) (string, error) {
	if err := m.record(OpPlayerName); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerName, nil
}

// DeleteAccount records the call
func (m *MockProvider) DeleteAccount(ctx context.Context) error {
	return m.record(OpDeleteAccount)
}
