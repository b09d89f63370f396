package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/playersync/internal/dependencies/random"
	"github.com/mcoot/playersync/internal/model"
)

// AccountKey is the per-player store key holding the account record
const AccountKey = "account"

// anonymousNameDigits is the length of the numeric suffix on anonymous names
const anonymousNameDigits = 4

// playerNamespace scopes name-derived player IDs
var playerNamespace = uuid.MustParse("6f0c3a4e-5b7d-4a8e-9c1f-2d3b4a5c6e7f")

// PlayerIDForUsername returns the stable player ID for a username
func PlayerIDForUsername(username string) model.PlayerID {
	normalized := strings.ToLower(strings.TrimSpace(username))
	return model.PlayerID(uuid.NewSHA1(playerNamespace, []byte(normalized)).String())
}

// authenticate signs in an existing account or registers a new one
func (p *Provider) authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	if username == "" {
		return p.createAnonymous(ctx)
	}

	playerID := PlayerIDForUsername(username)
	account, err := p.getAccount(ctx, playerID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return p.register(ctx, playerID, username, password)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrAuthentication)
	}
	return account, nil
}

func (p *Provider) register(ctx context.Context, playerID model.PlayerID, username, password string) (*model.Account, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password required", model.ErrAuthentication)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrAuthentication, err)
	}

	now := p.clock.Now()
	account := &model.Account{
		PlayerID:     playerID,
		Username:     username,
		Name:         username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.saveAccount(ctx, account); err != nil {
		return nil, err
	}

	p.logger.Info("account registered",
		slog.String("player_id", string(playerID)),
		slog.String("username", username),
	)
	return account, nil
}

func (p *Provider) createAnonymous(ctx context.Context) (*model.Account, error) {
	now := p.clock.Now()
	account := &model.Account{
		PlayerID:  model.PlayerID(uuid.NewString()),
		Name:      model.DefaultPlayerName + "#" + p.random.String(anonymousNameDigits, random.Digits),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.saveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (p *Provider) getAccount(ctx context.Context, playerID model.PlayerID) (*model.Account, error) {
	blob, err := p.store.Get(ctx, playerID, AccountKey)
	if errors.Is(err, model.ErrBlobNotFound) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, connectivity(err)
	}

	var account model.Account
	if err := json.Unmarshal([]byte(blob), &account); err != nil {
		return nil, fmt.Errorf("%w: corrupt account record: %v", model.ErrAuthentication, err)
	}
	return &account, nil
}

func (p *Provider) saveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, account.PlayerID, AccountKey, string(data)); err != nil {
		return connectivity(err)
	}
	return nil
}

// connectivity marks a store failure as a connectivity error unless it
// already carries one
func connectivity(err error) error {
	if errors.Is(err, model.ErrConnectivity) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrConnectivity, err)
}
