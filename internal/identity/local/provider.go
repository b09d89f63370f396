// Package local implements an in-process identity provider backed by the
// player store: password accounts, anonymous sign-in and signed tokens.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/playersync/internal/dependencies/clock"
	"github.com/mcoot/playersync/internal/dependencies/random"
	"github.com/mcoot/playersync/internal/identity"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
)

// MaxNameLength is the longest accepted display name, in runes
const MaxNameLength = 50

// Config holds configuration for the local provider
type Config struct {
	// Username and Password identify the account to sign in to.
	// An empty Username signs in anonymously.
	Username string
	Password string

	TokenSecret string
	TokenTTL    time.Duration
	Issuer      string
	BcryptCost  int
}

// DefaultConfig returns default provider configuration
func DefaultConfig() Config {
	return Config{
		TokenTTL:   time.Hour,
		Issuer:     "playersync",
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Provider is an identity provider that keeps accounts in the player store
type Provider struct {
	store  storage.Store
	cfg    Config
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	handshakes sync.WaitGroup

	mu          sync.Mutex
	listener    identity.Listener
	initialized bool
	pending     *model.Account
	current     *model.Account
	expiry      clock.Timer
}

var _ identity.Provider = (*Provider)(nil)

// New creates a local Provider
func New(store storage.Store, cfg Config, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Provider {
	defaults := DefaultConfig()
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}

	return &Provider{
		store:  store,
		cfg:    cfg,
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("component", "identity")),
	}
}

// SetCredentials changes the account used by the next handshake
func (p *Provider) SetCredentials(username, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Username = strings.TrimSpace(username)
	p.cfg.Password = password
}

// Initialize checks the provider can sign tokens
func (p *Provider) Initialize(ctx context.Context) error {
	if p.cfg.TokenSecret == "" {
		return fmt.Errorf("%w: token secret not configured", model.ErrInitialization)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInitialization, err)
	}

	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()
	return nil
}

// SetListener registers the receiver of provider notifications
func (p *Provider) SetListener(l identity.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// StartHandshake verifies the configured credentials in the background and
// reports the outcome to the listener
func (p *Provider) StartHandshake(ctx context.Context) error {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return model.ErrNotInitialized
	}
	username, password := p.cfg.Username, p.cfg.Password
	p.handshakes.Add(1)
	p.mu.Unlock()

	// The handshake outlives the call that started it
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer p.handshakes.Done()
		p.handshake(ctx, username, password)
	}()
	return nil
}

func (p *Provider) handshake(ctx context.Context, username, password string) {
	account, err := p.authenticate(ctx, username, password)
	if err != nil {
		p.logger.Warn("handshake rejected",
			slog.String("username", username),
			slog.Any("error", err),
		)
		p.notify(func(l identity.Listener) { l.SignInFailed(err) })
		return
	}

	grant, _, err := p.issue(account.PlayerID, audienceGrant, grantTTL)
	if err != nil {
		p.notify(func(l identity.Listener) { l.SignInFailed(fmt.Errorf("%w: %w", model.ErrAuthentication, err)) })
		return
	}

	p.mu.Lock()
	p.pending = account
	p.mu.Unlock()

	p.notify(func(l identity.Listener) { l.HandshakeCompleted(grant) })
}

// ExchangeToken verifies a grant and opens a session with an access token
func (p *Provider) ExchangeToken(ctx context.Context, grant string) (model.Token, error) {
	playerID, err := p.verify(grant, audienceGrant)
	if err != nil {
		return model.Token{}, err
	}

	p.mu.Lock()
	account := p.pending
	p.mu.Unlock()
	if account == nil || account.PlayerID != playerID {
		return model.Token{}, fmt.Errorf("%w: unknown grant", model.ErrAuthentication)
	}

	access, expiresAt, err := p.issue(playerID, audienceAccess, p.cfg.TokenTTL)
	if err != nil {
		return model.Token{}, fmt.Errorf("%w: %w", model.ErrAuthentication, err)
	}

	p.mu.Lock()
	p.pending = nil
	p.current = account
	p.stopExpiryLocked()
	p.expiry = p.clock.AfterFunc(p.cfg.TokenTTL, p.ExpireNow)
	p.mu.Unlock()

	p.logger.Info("session opened",
		slog.String("player_id", string(playerID)),
		slog.Time("expires_at", expiresAt),
	)
	return model.Token{PlayerID: playerID, AccessToken: access, ExpiresAt: expiresAt}, nil
}

// SignOut ends the session and notifies the listener
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return nil
	}
	p.current = nil
	p.stopExpiryLocked()
	p.mu.Unlock()

	p.notify(func(l identity.Listener) { l.SignedOut() })
	return nil
}

// ExpireNow ends the session as if its token had run out
func (p *Provider) ExpireNow() {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	playerID := p.current.PlayerID
	p.current = nil
	p.stopExpiryLocked()
	p.mu.Unlock()

	p.logger.Info("session expired", slog.String("player_id", string(playerID)))
	p.notify(func(l identity.Listener) { l.Expired() })
}

// RenamePlayer validates and stores a new display name
func (p *Provider) RenamePlayer(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: not signed in", model.ErrAuthentication)
	}
	updated := *p.current
	p.mu.Unlock()

	updated.Name = name
	updated.UpdatedAt = p.clock.Now()
	if err := p.saveAccount(ctx, &updated); err != nil {
		return err
	}

	p.mu.Lock()
	if p.current != nil && p.current.PlayerID == updated.PlayerID {
		p.current = &updated
	}
	p.mu.Unlock()
	return nil
}

// PlayerID returns the signed-in player, or empty
func (p *Provider) PlayerID() model.PlayerID {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.PlayerID
}

// PlayerName returns the signed-in player's display name
func (p *Provider) PlayerName(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", fmt.Errorf("%w: not signed in", model.ErrAuthentication)
	}
	return p.current.Name, nil
}

// DeleteAccount removes the signed-in player's account record and ends the session
func (p *Provider) DeleteAccount(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: not signed in", model.ErrAuthentication)
	}
	playerID := p.current.PlayerID
	p.mu.Unlock()

	if err := p.store.Delete(ctx, playerID, AccountKey); err != nil && !errors.Is(err, model.ErrBlobNotFound) {
		return connectivity(err)
	}

	p.mu.Lock()
	p.current = nil
	p.stopExpiryLocked()
	p.mu.Unlock()

	p.logger.Info("account deleted", slog.String("player_id", string(playerID)))
	return nil
}

// Close stops the expiry timer and waits for running handshakes
func (p *Provider) Close() {
	p.mu.Lock()
	p.stopExpiryLocked()
	p.mu.Unlock()
	p.handshakes.Wait()
}

func (p *Provider) stopExpiryLocked() {
	if p.expiry != nil {
		p.expiry.Stop()
		p.expiry = nil
	}
}

func (p *Provider) notify(fn func(l identity.Listener)) {
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		fn(l)
	}
}

// ValidateName checks a display name is 1 to MaxNameLength runes with no whitespace
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLength {
		return fmt.Errorf("%w: must be 1 to %d characters", model.ErrInvalidName, MaxNameLength)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: must not contain whitespace", model.ErrInvalidName)
	}
	return nil
}
