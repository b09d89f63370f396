package progression

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/playersync/internal/model"
)

// saveRequest is one snapshot waiting to be written
type saveRequest struct {
	playerID    model.PlayerID
	progression model.Progression
}

type writeFunc func(ctx context.Context, req saveRequest) error

// saver writes snapshots with at most one write in flight. A request made
// while a write is running replaces the single pending slot and is written
// as soon as the running write finishes.
type saver struct {
	write    writeFunc
	onSaved  func(req saveRequest)
	attempts int
	delay    time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending *saveRequest
	running bool
	idle    chan struct{}
	lastErr error
}

func newSaver(write writeFunc, onSaved func(saveRequest), attempts int, delay time.Duration, logger *slog.Logger) *saver {
	idle := make(chan struct{})
	close(idle)
	return &saver{
		write:    write,
		onSaved:  onSaved,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
		idle:     idle,
	}
}

// schedule queues a snapshot and returns without waiting for the write
func (s *saver) schedule(req saveRequest) {
	s.mu.Lock()
	if s.pending != nil {
		s.logger.Debug("coalescing pending save",
			slog.String("player_id", string(req.playerID)),
		)
	}
	s.pending = &req
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	go s.run()
}

func (s *saver) run() {
	for {
		s.mu.Lock()
		req := s.pending
		if req == nil {
			s.running = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()

		// Writes are never cancelled once issued
		err := s.writeWithRetry(context.Background(), *req)

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		if err == nil && s.onSaved != nil {
			s.onSaved(*req)
		}
	}
}

func (s *saver) writeWithRetry(ctx context.Context, req saveRequest) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.write(ctx, req)
		if err == nil {
			return nil
		}

		s.logger.Warn("save failed",
			slog.String("player_id", string(req.playerID)),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.attempts),
			slog.Any("error", err),
		)

		if attempt < s.attempts && s.delay > 0 {
			timer := time.NewTimer(s.delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	s.logger.Error("giving up on save",
		slog.String("player_id", string(req.playerID)),
		slog.Any("error", err),
	)
	return err
}

// flush waits until no write is running or pending and returns the result
// of the last completed write
func (s *saver) flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
