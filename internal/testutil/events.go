package testutil

import (
	"sync"
	"time"

	"github.com/mcoot/playersync/internal/model"
)

// EventRecorder collects events delivered to a subscriber callback.
// Safe for events arriving from background goroutines.
type EventRecorder struct {
	mu     sync.Mutex
	events []model.Event
	notify chan struct{}
}

// NewEventRecorder creates an empty EventRecorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{notify: make(chan struct{}, 1)}
}

// Record appends an event. Pass it to Subscribe.
func (r *EventRecorder) Record(e model.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns every recorded event in delivery order
func (r *EventRecorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in delivery order
func (r *EventRecorder) Types() []model.EventType {
	events := r.Events()
	out := make([]model.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// OfType returns the recorded events of one type
func (r *EventRecorder) OfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Updates returns the progression_updated payloads with the given reason
func (r *EventRecorder) Updates(reason model.UpdateReason) []model.ProgressionUpdatedPayload {
	var out []model.ProgressionUpdatedPayload
	for _, e := range r.OfType(model.EventProgressionUpdated) {
		if p, ok := e.Payload.(model.ProgressionUpdatedPayload); ok && p.Reason == reason {
			out = append(out, p)
		}
	}
	return out
}

// Reset discards recorded events
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// WaitFor blocks until an event of the given type has been recorded or the
// timeout passes. Returns the first matching event.
func (r *EventRecorder) WaitFor(t model.EventType, timeout time.Duration) (model.Event, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if events := r.OfType(t); len(events) > 0 {
			return events[0], true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			if events := r.OfType(t); len(events) > 0 {
				return events[0], true
			}
			return model.Event{}, false
		}
	}
}
