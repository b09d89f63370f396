// Package events provides the observer registry used to fan notifications
// out to subscribers.
package events

import "sync"

// Handle identifies a subscription so it can be removed later
type Handle uint64

type subscriber[T any] struct {
	handle Handle
	fn     func(T)
}

// Registry holds an ordered list of subscriber callbacks.
// Emit delivers synchronously, in subscription order, on the caller's goroutine.
type Registry[T any] struct {
	mu          sync.RWMutex
	nextHandle  Handle
	subscribers []subscriber[T]
}

// NewRegistry creates an empty Registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Subscribe adds a callback and returns its handle
func (r *Registry[T]) Subscribe(fn func(T)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHandle++
	r.subscribers = append(r.subscribers, subscriber[T]{handle: r.nextHandle, fn: fn})
	return r.nextHandle
}

// Unsubscribe removes a callback. Returns false if the handle is unknown.
func (r *Registry[T]) Unsubscribe(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subscribers {
		if s.handle == h {
			// Copy so an Emit iterating the old slice is unaffected
			next := make([]subscriber[T], 0, len(r.subscribers)-1)
			next = append(next, r.subscribers[:i]...)
			next = append(next, r.subscribers[i+1:]...)
			r.subscribers = next
			return true
		}
	}
	return false
}

// Emit calls every subscriber with v. Callbacks may subscribe or unsubscribe
// without deadlocking; changes take effect from the next Emit.
func (r *Registry[T]) Emit(v T) {
	r.mu.RLock()
	subs := r.subscribers
	r.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}
