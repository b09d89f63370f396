package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/storage"
	"github.com/mcoot/playersync/internal/storage/memory"
)

// PutCall records one Put against the MockStore
type PutCall struct {
	PlayerID model.PlayerID
	Key      string
	Value    string
}

// MockStore wraps in-memory storage with call recording, injectable
// failures and a gate that holds Put calls until released.
type MockStore struct {
	inner *memory.Storage

	mu       sync.Mutex
	getErr   error
	putErrs  []error
	puts     []PutCall
	gets     int
	gate     chan struct{}
	inFlight int
	maxPuts  int
	started  chan struct{}
}

// Ensure MockStore implements Store
var _ storage.Store = (*MockStore)(nil)

// NewMockStore creates an empty MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		inner:   memory.New(),
		started: make(chan struct{}, 64),
	}
}

// Get returns the stored blob, or the injected get error
func (m *MockStore) Get(ctx context.Context, playerID model.PlayerID, key string) (string, error) {
	m.mu.Lock()
	m.gets++
	err := m.getErr
	m.mu.Unlock()

	if err != nil {
		return "", err
	}
	return m.inner.Get(ctx, playerID, key)
}

// Put records the call, waits on the gate if one is set, then stores the
// blob unless a queued put error applies
func (m *MockStore) Put(ctx context.Context, playerID model.PlayerID, key, value string) error {
	m.mu.Lock()
	m.puts = append(m.puts, PutCall{PlayerID: playerID, Key: key, Value: value})
	gate := m.gate
	var err error
	if len(m.putErrs) > 0 {
		err = m.putErrs[0]
		m.putErrs = m.putErrs[1:]
	}
	m.inFlight++
	if m.inFlight > m.maxPuts {
		m.maxPuts = m.inFlight
	}
	m.mu.Unlock()

	select {
	case m.started <- struct{}{}:
	default:
	}

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err != nil {
		return err
	}
	return m.inner.Put(ctx, playerID, key, value)
}

// Delete removes the blob
func (m *MockStore) Delete(ctx context.Context, playerID model.PlayerID, key string) error {
	return m.inner.Delete(ctx, playerID, key)
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

// Seed stores a blob without recording a Put
func (m *MockStore) Seed(playerID model.PlayerID, key, value string) {
	_ = m.inner.Put(context.Background(), playerID, key, value)
}

// Blob returns the stored blob and whether it exists
func (m *MockStore) Blob(playerID model.PlayerID, key string) (string, bool) {
	value, err := m.inner.Get(context.Background(), playerID, key)
	return value, err == nil
}

// FailGets makes every Get return err until cleared with nil
func (m *MockStore) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailNextPuts queues errors returned by the next Put calls, one per call
func (m *MockStore) FailNextPuts(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErrs = append(m.putErrs, errs...)
}

// HoldPuts makes Put block until ReleasePuts is called
func (m *MockStore) HoldPuts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// ReleasePuts unblocks held and future Put calls
func (m *MockStore) ReleasePuts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// PutStarted returns a channel that receives once per Put call
func (m *MockStore) PutStarted() <-chan struct{} {
	return m.started
}

// Puts returns the recorded Put calls in call order
func (m *MockStore) Puts() []PutCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PutCall, len(m.puts))
	copy(out, m.puts)
	return out
}

// PutCount returns the number of Put calls
func (m *MockStore) PutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

// GetCount returns the number of Get calls
func (m *MockStore) GetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// MaxConcurrentPuts returns the highest number of Put calls seen in flight at once
func (m *MockStore) MaxConcurrentPuts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxPuts
}
