package factory

import (
	"time"

	"github.com/mcoot/cardroom/internal/dependencies/mocks"
	"github.com/mcoot/cardroom/internal/services/auth"
	"github.com/mcoot/cardroom/internal/storage/memory"
)

// TestServer extends Server with test-specific helpers
type TestServer struct {
	*Server

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestServer creates a Server configured for testing with mocked dependencies
func NewTestServer() *TestServer {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	srv := newServerWithDependencies(store, mockClock, mockRandom, auth.DefaultConfig(), nopLogger())

	return &TestServer{
		Server:     srv,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// TestClient extends Client with test-specific helpers
type TestClient struct {
	*Client

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockTransport *mocks.MockTransport
	MemoryStore   *memory.Storage
}

// NewTestClient creates a Client backed by a mock transport and memory storage
func NewTestClient() *TestClient {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockTransport := mocks.NewMockTransport()

	c := newClientWithDependencies(store, mockTransport, mockClock, ClientConfig{}, nopLogger())

	return &TestClient{
		Client:        c,
		MockClock:     mockClock,
		MockTransport: mockTransport,
		MemoryStore:   store,
	}
}
