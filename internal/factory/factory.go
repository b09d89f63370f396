package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/playersync/internal/config"
	"github.com/mcoot/playersync/internal/dependencies/clock"
	"github.com/mcoot/playersync/internal/dependencies/random"
	"github.com/mcoot/playersync/internal/identity/local"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/services/auth"
	"github.com/mcoot/playersync/internal/services/progression"
	"github.com/mcoot/playersync/internal/sse"
	"github.com/mcoot/playersync/internal/storage"
	"github.com/mcoot/playersync/internal/storage/memory"
	redisstorage "github.com/mcoot/playersync/internal/storage/redis"
	sqlitestorage "github.com/mcoot/playersync/internal/storage/sqlite"
)

// App contains all wired application components. One App owns exactly one
// session controller and one progression synchronizer.
type App struct {
	// Storage
	Store storage.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Provider    *local.Provider
	Progression *progression.Synchronizer
	Auth        *auth.Controller
	Hub         *sse.Hub
	Relay       *sse.Relay

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLiteConfig holds database settings (required if StorageType is "sqlite")
	SQLiteConfig *sqlitestorage.Config
	// Identity configures the local identity provider
	Identity local.Config
	// Progression configures the synchronizer. Zero values take defaults.
	Progression progression.Config
}

// ConfigFrom builds a factory config from process configuration
func ConfigFrom(cfg config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.RedisURL

	sqliteCfg := sqlitestorage.DefaultConfig()
	sqliteCfg.Path = cfg.SQLitePath

	identityCfg := local.DefaultConfig()
	identityCfg.Username = cfg.Username
	identityCfg.Password = cfg.Password
	identityCfg.TokenSecret = cfg.TokenSecret
	identityCfg.TokenTTL = cfg.TokenTTL

	progressionCfg := progression.DefaultConfig()
	progressionCfg.SaveAttempts = cfg.SaveAttempts
	progressionCfg.RetryDelay = cfg.SaveRetryDelay

	return Config{
		Logger:       logger,
		StorageType:  cfg.StorageType,
		RedisConfig:  &redisCfg,
		SQLiteConfig: &sqliteCfg,
		Identity:     identityCfg,
		Progression:  progressionCfg,
	}
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageMemory
	}

	var store storage.Store
	switch storageType {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case config.StorageSQLite:
		if cfg.SQLiteConfig == nil {
			return nil, errors.New("SQLiteConfig required when StorageType is sqlite")
		}
		sqliteStore, err := sqlitestorage.New(*cfg.SQLiteConfig, clk)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sqlite'", storageType)
	}

	progressionCfg := cfg.Progression
	if progressionCfg == (progression.Config{}) {
		progressionCfg = progression.DefaultConfig()
	}

	logger.Info("application configured", slog.String("storage", storageType))
	return newWithDependencies(store, clk, rnd, cfg.Identity, progressionCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Store,
	clk clock.Clock,
	rnd random.Random,
	identityCfg local.Config,
	progressionCfg progression.Config,
	logger *slog.Logger,
) *App {
	provider := local.New(store, identityCfg, clk, rnd, logger)
	synchronizer := progression.New(store, progressionCfg, clk, logger)
	controller := auth.New(provider, synchronizer, clk, logger)
	hub := sse.NewHub(logger)
	relay := sse.NewRelay(hub, logger)

	return &App{
		Store:       store,
		Clock:       clk,
		Random:      rnd,
		Provider:    provider,
		Progression: synchronizer,
		Auth:        controller,
		Hub:         hub,
		Relay:       relay,
		Logger:      logger,
	}
}

// Start runs the event hub and initializes the identity provider
func (a *App) Start(ctx context.Context) error {
	go a.Hub.Run()
	a.Relay.Attach(a.Auth)
	a.Relay.Attach(a.Progression)

	if err := a.Auth.Initialize(ctx); err != nil {
		return err
	}
	if a.Auth.State() == model.AuthStateError {
		return fmt.Errorf("%w: %s", model.ErrInitialization, a.Auth.Session().LastError)
	}
	return nil
}

// SignIn signs in with the given credentials (anonymously when username is
// empty) and waits until the progression load has finished
func (a *App) SignIn(ctx context.Context, username, password string) error {
	a.Provider.SetCredentials(username, password)

	result := make(chan model.Event, 1)
	h := a.Auth.Subscribe(func(e model.Event) {
		if e.Type != model.EventSignedIn && e.Type != model.EventAuthError {
			return
		}
		select {
		case result <- e:
		default:
		}
	})
	defer a.Auth.Unsubscribe(h)

	if err := a.Auth.BeginSignIn(ctx); err != nil {
		return err
	}

	select {
	case e := <-result:
		if payload, ok := e.Payload.(model.AuthErrorPayload); ok {
			return fmt.Errorf("sign-in failed (%s): %s", payload.Kind, payload.Message)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	a.Auth.Wait()
	return nil
}

// Close flushes pending saves and releases resources
func (a *App) Close(ctx context.Context) error {
	a.Auth.Wait()
	flushErr := a.Progression.Flush(ctx)

	a.Relay.Detach()
	a.Hub.Close()
	a.Provider.Close()

	return errors.Join(flushErr, a.Store.Close())
}
