package sse

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/playersync/internal/events"
	"github.com/mcoot/playersync/internal/model"
)

// Source is anything that publishes core events
type Source interface {
	Subscribe(fn func(model.Event)) events.Handle
	Unsubscribe(h events.Handle) bool
}

type attachment struct {
	source Source
	handle events.Handle
}

// Relay forwards core events to a Hub, one SSE event per core event.
// The SSE event name is the core event type and the data is the event as JSON.
type Relay struct {
	hub    *Hub
	logger *slog.Logger

	mu       sync.Mutex
	attached []attachment
}

// NewRelay creates a Relay publishing to hub
func NewRelay(hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{
		hub:    hub,
		logger: logger.With(slog.String("component", "sse-relay")),
	}
}

// Attach subscribes the relay to a source
func (r *Relay) Attach(src Source) {
	h := src.Subscribe(r.publish)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = append(r.attached, attachment{source: src, handle: h})
}

// Detach unsubscribes from every attached source
func (r *Relay) Detach() {
	r.mu.Lock()
	attached := r.attached
	r.attached = nil
	r.mu.Unlock()

	for _, a := range attached {
		a.source.Unsubscribe(a.handle)
	}
}

func (r *Relay) publish(e model.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("failed to encode event",
			slog.String("type", string(e.Type)),
			slog.Any("error", err))
		return
	}
	r.hub.BroadcastEvent(string(e.Type), string(data))
}
