package progression

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/playersync/internal/dependencies/clock"
	"github.com/mcoot/playersync/internal/events"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
)

// DefaultKey is the store key holding the serialized progression
const DefaultKey = "playerData"

// Config holds configuration for the synchronizer
type Config struct {
	// Key is the per-player store key for the progression blob
	Key string
	// SaveAttempts is the number of write attempts per save. 1 disables retry.
	SaveAttempts int
	// RetryDelay is the wait between attempts
	RetryDelay time.Duration
}

// DefaultConfig returns the default synchronizer configuration
func DefaultConfig() Config {
	return Config{
		Key:          DefaultKey,
		SaveAttempts: 1,
		RetryDelay:   500 * time.Millisecond,
	}
}

// Synchronizer owns the in-memory progression and keeps the remote copy in
// step with it. The in-memory model is authoritative; remote writes are
// best effort and their failures are logged, never returned to mutators.
type Synchronizer struct {
	store  storage.Store
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger
	events *events.Registry[model.Event]
	saver  *saver

	mu       sync.Mutex
	model    model.Progression
	playerID model.PlayerID
	loaded   bool
	outcome  model.LoadOutcome
	loadSeq  uint64
}

// New creates a Synchronizer holding the default progression
func New(store storage.Store, cfg Config, clk clock.Clock, logger *slog.Logger) *Synchronizer {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.SaveAttempts < 1 {
		cfg.SaveAttempts = 1
	}

	s := &Synchronizer{
		store:  store,
		cfg:    cfg,
		clock:  clk,
		logger: logger.With(slog.String("component", "progression")),
		events: events.NewRegistry[model.Event](),
		model:  model.NewProgression(),
	}
	s.saver = newSaver(s.writeBlob, s.onSaved, cfg.SaveAttempts, cfg.RetryDelay, s.logger)
	return s
}

// Subscribe registers a callback for progression events
func (s *Synchronizer) Subscribe(fn func(model.Event)) events.Handle {
	return s.events.Subscribe(fn)
}

// Unsubscribe removes a callback registered with Subscribe
func (s *Synchronizer) Unsubscribe(h events.Handle) bool {
	return s.events.Unsubscribe(h)
}

// Load fetches the player's progression and binds the synchronizer to that
// player. Storage failures never reach the caller: an absent blob is
// replaced by defaults that are written back, and an unreadable one is
// replaced by defaults kept in memory only.
func (s *Synchronizer) Load(ctx context.Context, playerID model.PlayerID) model.LoadOutcome {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	// Unbind until this load lands so mutations cannot reach the previous player
	s.loaded = false
	s.playerID = ""
	s.mu.Unlock()

	logger := s.logger.With(slog.String("player_id", string(playerID)))

	var (
		p       model.Progression
		outcome model.LoadOutcome
	)

	blob, err := s.store.Get(ctx, playerID, s.cfg.Key)
	switch {
	case errors.Is(err, model.ErrBlobNotFound):
		p = model.NewProgression()
		outcome = model.LoadOutcomeCreated
		if err := s.saver.writeWithRetry(ctx, saveRequest{playerID: playerID, progression: p}); err != nil {
			logger.Warn("bootstrap write failed", slog.Any("error", err))
		}
	case err != nil:
		logger.Warn("progression fetch failed, using defaults", slog.Any("error", err))
		p = model.NewProgression()
		outcome = model.LoadOutcomeDefaults
	default:
		decoded, err := Decode(blob)
		if err != nil {
			logger.Warn("stored progression unreadable, using defaults", slog.Any("error", err))
			p = model.NewProgression()
			outcome = model.LoadOutcomeDefaults
		} else {
			p = decoded
			outcome = model.LoadOutcomeStored
		}
	}

	s.mu.Lock()
	if seq != s.loadSeq {
		s.mu.Unlock()
		logger.Debug("discarding superseded load")
		return outcome
	}
	s.model = p
	s.playerID = playerID
	s.loaded = true
	s.outcome = outcome
	s.mu.Unlock()

	logger.Info("progression loaded",
		slog.String("outcome", string(outcome)),
		slog.Int("level", p.Level),
	)

	s.emit(playerID, model.EventProgressionLoaded, model.ProgressionLoadedPayload{Outcome: outcome})
	s.emitUpdated(playerID, model.UpdateReasonLoad, p, 0)
	return outcome
}

// AddExperience adds experience, counts the click and applies level-up
// rollover. Ignored until a load has completed or when amount is not a
// valid gain (positive and at most model.MaxExperienceGain).
func (s *Synchronizer) AddExperience(amount int) bool {
	if !model.ValidExperienceGain(amount) {
		s.logger.Debug("ignoring experience gain", slog.Int("amount", amount))
		return false
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false
	}
	levels := s.model.GainExperience(amount)
	snapshot, playerID := s.model, s.playerID
	s.mu.Unlock()

	if levels > 0 {
		s.logger.Info("level up",
			slog.String("player_id", string(playerID)),
			slog.Int("level", snapshot.Level),
			slog.Int("levels_gained", levels),
		)
	}

	s.emitUpdated(playerID, model.UpdateReasonExperience, snapshot, levels)
	s.saver.schedule(saveRequest{playerID: playerID, progression: snapshot})
	return true
}

// UseSkillPoint spends one skill point on the named stat. Unknown stat names
// and an empty point pool leave the model untouched.
func (s *Synchronizer) UseSkillPoint(stat string) bool {
	parsed, ok := model.ParseStat(stat)
	if !ok {
		s.logger.Debug("ignoring unknown stat", slog.String("stat", stat))
		return false
	}

	s.mu.Lock()
	if !s.loaded || !s.model.SpendSkillPoint(parsed) {
		s.mu.Unlock()
		return false
	}
	snapshot, playerID := s.model, s.playerID
	s.mu.Unlock()

	s.emitUpdated(playerID, model.UpdateReasonSkillPoint, snapshot, 0)
	s.saver.schedule(saveRequest{playerID: playerID, progression: snapshot})
	return true
}

// UpdatePlayerName replaces the stored player name. The name is kept as
// given; empty and whitespace-only names are ignored.
func (s *Synchronizer) UpdatePlayerName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false
	}
	s.model.PlayerName = name
	snapshot, playerID := s.model, s.playerID
	s.mu.Unlock()

	s.emitUpdated(playerID, model.UpdateReasonRename, snapshot, 0)
	s.saver.schedule(saveRequest{playerID: playerID, progression: snapshot})
	return true
}

// Reset replaces the model with defaults. The reset is written back when a
// player is bound.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.model = model.NewProgression()
	snapshot, playerID := s.model, s.playerID
	s.mu.Unlock()

	s.emitUpdated(playerID, model.UpdateReasonReset, snapshot, 0)

	if playerID == "" {
		s.logger.Debug("reset before load, nothing to save")
		return
	}
	s.saver.schedule(saveRequest{playerID: playerID, progression: snapshot})
}

// Save writes the current model and waits for pending writes to finish.
// Returns the error of the last write.
func (s *Synchronizer) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.playerID == "" {
		s.mu.Unlock()
		return model.ErrNotLoaded
	}
	req := saveRequest{playerID: s.playerID, progression: s.model}
	s.mu.Unlock()

	s.saver.schedule(req)
	return s.saver.flush(ctx)
}

// Flush waits until no write is running or pending
func (s *Synchronizer) Flush(ctx context.Context) error {
	return s.saver.flush(ctx)
}

// Forget deletes the bound player's remote progression and returns the
// synchronizer to its unloaded default state
func (s *Synchronizer) Forget(ctx context.Context) error {
	s.mu.Lock()
	playerID := s.playerID
	s.loadSeq++
	s.model = model.NewProgression()
	s.playerID = ""
	s.loaded = false
	s.outcome = model.LoadOutcomeNone
	snapshot := s.model
	s.mu.Unlock()

	if playerID == "" {
		return model.ErrNotLoaded
	}

	// Let queued writes land first so none of them recreates the blob
	_ = s.saver.flush(ctx)

	if err := s.store.Delete(ctx, playerID, s.cfg.Key); err != nil {
		s.logger.Error("failed to delete progression",
			slog.String("player_id", string(playerID)),
			slog.Any("error", err),
		)
		return err
	}

	s.logger.Info("progression forgotten", slog.String("player_id", string(playerID)))
	s.emitUpdated(playerID, model.UpdateReasonForget, snapshot, 0)
	return nil
}

// Snapshot returns a copy of the current model
func (s *Synchronizer) Snapshot() model.Progression {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// IsLoaded reports whether a load has completed for the bound player
func (s *Synchronizer) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadOutcome reports how the last load completed
func (s *Synchronizer) LoadOutcome() model.LoadOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// PlayerID returns the bound player, or empty before a load
func (s *Synchronizer) PlayerID() model.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Synchronizer) writeBlob(ctx context.Context, req saveRequest) error {
	blob, err := Encode(req.progression)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, req.playerID, s.cfg.Key, blob)
}

func (s *Synchronizer) onSaved(req saveRequest) {
	s.logger.Debug("progression saved", slog.String("player_id", string(req.playerID)))
	s.emitUpdated(req.playerID, model.UpdateReasonSaved, s.Snapshot(), 0)
}

func (s *Synchronizer) emitUpdated(playerID model.PlayerID, reason model.UpdateReason, p model.Progression, levels int) {
	s.emit(playerID, model.EventProgressionUpdated, model.ProgressionUpdatedPayload{
		Reason:       reason,
		Progression:  p,
		LevelsGained: levels,
	})
}

func (s *Synchronizer) emit(playerID model.PlayerID, eventType model.EventType, payload any) {
	s.events.Emit(model.Event{
		Type:      eventType,
		Timestamp: s.clock.Now(),
		PlayerID:  playerID,
		Payload:   payload,
	})
}
