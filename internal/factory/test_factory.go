package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/playersync/internal/dependencies/mocks"
	"github.com/mcoot/playersync/internal/identity/local"
	"github.com/mcoot/playersync/internal/services/progression"
	"github.com/mcoot/playersync/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockStore  *mocks.MockStore
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStore(mocks.NewMockStore())
}

// NewTestAppWithStore creates a test App over an existing store, simulating
// a process restart when the store is shared with an earlier TestApp
func NewTestAppWithStore(store *mocks.MockStore) *TestApp {
	mockClock := mocks.NewMockClock(time.Now().Truncate(time.Second))
	mockRandom := mocks.NewMockRandom()

	identityCfg := local.DefaultConfig()
	identityCfg.TokenSecret = "test-secret"
	identityCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(store, mockClock, mockRandom, identityCfg, progression.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockStore:  store,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
