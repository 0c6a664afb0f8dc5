package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/namhsc/tvtl-sub000/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FileStore implements domain.TokenStore on a single JSON file. Writes go
// through a temp file plus rename so a concurrent reader observes either
// the previous record or the new one, never a half-written tuple.
type FileStore struct {
	path  string
	grace time.Duration
	clock domain.Clock
	mu    sync.Mutex
}

// NewFileStore creates a file-backed token store. A nil clock falls back to
// the system clock.
func NewFileStore(path string, grace time.Duration, clock domain.Clock) *FileStore {
	if clock == nil {
		clock = systemClock{}
	}
	return &FileStore{
		path:  path,
		grace: grace,
		clock: clock,
	}
}

// Save implements domain.TokenStore
func (s *FileStore) Save(_ context.Context, record *domain.TokenRecord) error {
	if !record.Complete() {
		return domain.ErrPartialRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSessionPersist, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionPersist, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionPersist, err)
	}
	return nil
}

// Load implements domain.TokenStore. A corrupt or partial record is cleared
// and reads as absent.
func (s *FileStore) Load(ctx context.Context) (*domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *FileStore) loadLocked(ctx context.Context) (*domain.TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read token record: %w", err)
	}

	var record domain.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.clearLocked()
		return nil, domain.ErrRecordCorrupt
	}

	if !record.Complete() {
		s.clearLocked()
		return nil, domain.ErrRecordNotFound
	}

	return &record, nil
}

// AccessToken implements domain.TokenStore
func (s *FileStore) AccessToken(ctx context.Context) (string, error) {
	record, err := s.Load(ctx)
	if err != nil {
		return "", nil
	}
	return record.AccessToken, nil
}

// RefreshToken implements domain.TokenStore
func (s *FileStore) RefreshToken(ctx context.Context) (string, error) {
	record, err := s.Load(ctx)
	if err != nil {
		return "", nil
	}
	return record.RefreshToken, nil
}

// AuthState implements domain.TokenStore
func (s *FileStore) AuthState(ctx context.Context) domain.AuthState {
	record, err := s.Load(ctx)
	if err != nil {
		return domain.AuthState{}
	}

	now := s.clock.Now()
	return domain.AuthState{
		IsAuthenticated: !record.Expired(now, 0),
		HasValidSession: !record.Expired(now, s.grace),
	}
}

// CleanupExpired implements domain.TokenStore. Idempotent: calling on an
// already-clean store is a no-op.
func (s *FileStore) CleanupExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadLocked(ctx)
	if err != nil {
		return nil
	}

	if record.Expired(s.clock.Now(), s.grace) {
		return s.clearLocked()
	}
	return nil
}

// Clear implements domain.TokenStore
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *FileStore) clearLocked() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear token record: %w", err)
	}
	return nil
}

var _ domain.TokenStore = (*FileStore)(nil)
