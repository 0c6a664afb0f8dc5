package mocks

import (
	"context"
	"sync"

	"github.com/namhsc/tvtl-sub000/domain"
)

// MockTokenStore implements domain.TokenStore for testing. By default it
// behaves as a working in-memory store; individual operations can be
// overridden through the func fields.
type MockTokenStore struct {
	SaveFunc           func(ctx context.Context, record *domain.TokenRecord) error
	LoadFunc           func(ctx context.Context) (*domain.TokenRecord, error)
	ClearFunc          func(ctx context.Context) error
	CleanupExpiredFunc func(ctx context.Context) error

	mu     sync.Mutex
	record *domain.TokenRecord
}

// NewMockTokenStore creates a new MockTokenStore with in-memory defaults
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

// Seed places a record in the in-memory default store
func (m *MockTokenStore) Seed(record *domain.TokenRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = record
}

// Record returns the currently stored record
func (m *MockTokenStore) Record() *domain.TokenRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

// Save stores the record
func (m *MockTokenStore) Save(ctx context.Context, record *domain.TokenRecord) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, record)
	}
	if !record.Complete() {
		return domain.ErrPartialRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = record
	return nil
}

// Load retrieves the stored record
func (m *MockTokenStore) Load(ctx context.Context) (*domain.TokenRecord, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil, domain.ErrRecordNotFound
	}
	return m.record, nil
}

// AccessToken returns the stored access token or empty
func (m *MockTokenStore) AccessToken(ctx context.Context) (string, error) {
	record, err := m.Load(ctx)
	if err != nil {
		return "", nil
	}
	return record.AccessToken, nil
}

// RefreshToken returns the stored refresh token or empty
func (m *MockTokenStore) RefreshToken(ctx context.Context) (string, error) {
	record, err := m.Load(ctx)
	if err != nil {
		return "", nil
	}
	return record.RefreshToken, nil
}

// AuthState computes the snapshot from the stored record
func (m *MockTokenStore) AuthState(ctx context.Context) domain.AuthState {
	record, err := m.Load(ctx)
	if err != nil {
		return domain.AuthState{}
	}
	present := record.Complete()
	return domain.AuthState{IsAuthenticated: present, HasValidSession: present}
}

// CleanupExpired is a no-op by default
func (m *MockTokenStore) CleanupExpired(ctx context.Context) error {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return nil
}

// Clear erases the stored record
func (m *MockTokenStore) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

// Compile-time interface compliance verification
var _ domain.TokenStore = (*MockTokenStore)(nil)
