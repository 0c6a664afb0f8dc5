package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/namhsc/tvtl-sub000/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFileStoreForTest(t *testing.T, grace time.Duration) (*FileStore, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "session.json")
	return NewFileStore(path, grace, clock), clock
}

func validRecord(clock *fakeClock) *domain.TokenRecord {
	return &domain.TokenRecord{
		AccessToken:  "A",
		RefreshToken: "R",
		ExpiresAt:    clock.Now().Add(15 * time.Minute),
		User:         &domain.UserProfile{ID: 1, Phone: "0912345678", Roles: []string{domain.RoleStudent}},
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store, clock := newFileStoreForTest(t, 30*time.Second)
	ctx := context.Background()

	record := validRecord(clock)
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AccessToken != "A" || loaded.RefreshToken != "R" {
		t.Errorf("unexpected tokens: %+v", loaded)
	}
	if loaded.User == nil || loaded.User.Phone != "0912345678" {
		t.Errorf("unexpected profile: %+v", loaded.User)
	}

	token, err := store.AccessToken(ctx)
	if err != nil || token != "A" {
		t.Errorf("AccessToken() = %q, %v", token, err)
	}
	refresh, err := store.RefreshToken(ctx)
	if err != nil || refresh != "R" {
		t.Errorf("RefreshToken() = %q, %v", refresh, err)
	}
}

func TestFileStore_NoExpiryRecordPersists(t *testing.T) {
	store, clock := newFileStoreForTest(t, 30*time.Second)
	ctx := context.Background()

	record := validRecord(clock)
	record.ExpiresAt = time.Time{}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state := store.AuthState(ctx)
	if !state.IsAuthenticated || !state.HasValidSession {
		t.Errorf("AuthState = %+v, want authenticated for a non-expiring record", state)
	}

	// Cleanup must not reap a record that never expires locally
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if _, err := store.Load(ctx); err != nil {
		t.Errorf("Load after cleanup = %v, want record kept", err)
	}
}

func TestFileStore_SaveRejectsPartialTuple(t *testing.T) {
	store, clock := newFileStoreForTest(t, 0)
	ctx := context.Background()

	partials := []*domain.TokenRecord{
		{AccessToken: "A", ExpiresAt: clock.Now().Add(time.Minute)},
		{RefreshToken: "R", ExpiresAt: clock.Now().Add(time.Minute)},
		{AccessToken: "A", RefreshToken: "R"},
		nil,
	}
	for _, record := range partials {
		if err := store.Save(ctx, record); err != domain.ErrPartialRecord {
			t.Errorf("Save(%+v) = %v, want ErrPartialRecord", record, err)
		}
	}

	if _, err := store.Load(ctx); err != domain.ErrRecordNotFound {
		t.Errorf("expected no record after rejected saves, got %v", err)
	}
}

func TestFileStore_AuthStateTruthTable(t *testing.T) {
	ctx := context.Background()

	t.Run("no record", func(t *testing.T) {
		store, _ := newFileStoreForTest(t, 0)
		state := store.AuthState(ctx)
		if state.IsAuthenticated || state.HasValidSession {
			t.Errorf("empty store must not be authenticated: %+v", state)
		}
	})

	t.Run("both tokens valid", func(t *testing.T) {
		store, clock := newFileStoreForTest(t, 30*time.Second)
		if err := store.Save(ctx, validRecord(clock)); err != nil {
			t.Fatal(err)
		}
		state := store.AuthState(ctx)
		if !state.IsAuthenticated || !state.HasValidSession {
			t.Errorf("expected authenticated state: %+v", state)
		}
	})

	t.Run("both tokens expired", func(t *testing.T) {
		store, clock := newFileStoreForTest(t, 30*time.Second)
		if err := store.Save(ctx, validRecord(clock)); err != nil {
			t.Fatal(err)
		}
		clock.Advance(16 * time.Minute)
		state := store.AuthState(ctx)
		if state.IsAuthenticated || state.HasValidSession {
			t.Errorf("expected unauthenticated state after expiry: %+v", state)
		}
	})

	t.Run("expired but within grace", func(t *testing.T) {
		store, clock := newFileStoreForTest(t, time.Minute)
		if err := store.Save(ctx, validRecord(clock)); err != nil {
			t.Fatal(err)
		}
		clock.Advance(15*time.Minute + 10*time.Second)
		state := store.AuthState(ctx)
		if state.IsAuthenticated {
			t.Error("expired token must not read authenticated")
		}
		if !state.HasValidSession {
			t.Error("session within grace should still count as present")
		}
	})
}

func TestFileStore_PartialRecordOnDiskReadsAsAbsent(t *testing.T) {
	store, clock := newFileStoreForTest(t, 0)
	ctx := context.Background()

	// Simulate a record written by an older build missing the refresh token
	data := []byte(`{"accessToken":"A","expiresAt":"` + clock.Now().Add(time.Hour).Format(time.RFC3339) + `"}`)
	if err := os.WriteFile(store.path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(ctx); err != domain.ErrRecordNotFound {
		t.Fatalf("Load = %v, want ErrRecordNotFound", err)
	}
	if _, statErr := os.Stat(store.path); !os.IsNotExist(statErr) {
		t.Error("partial record should have been cleared from disk")
	}
}

func TestFileStore_CorruptRecordReadsAsAbsent(t *testing.T) {
	store, _ := newFileStoreForTest(t, 0)
	ctx := context.Background()

	if err := os.WriteFile(store.path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(ctx); err != domain.ErrRecordCorrupt {
		t.Fatalf("Load = %v, want ErrRecordCorrupt", err)
	}
	if _, statErr := os.Stat(store.path); !os.IsNotExist(statErr) {
		t.Error("corrupt record should have been cleared from disk")
	}
}

func TestFileStore_CleanupExpiredIsIdempotent(t *testing.T) {
	store, clock := newFileStoreForTest(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, validRecord(clock)); err != nil {
		t.Fatal(err)
	}

	// Not yet expired: cleanup leaves the record alone
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("record should survive cleanup before expiry: %v", err)
	}

	clock.Advance(16 * time.Minute)
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx); err != domain.ErrRecordNotFound {
		t.Fatalf("record should be gone after expiry cleanup, got %v", err)
	}

	// Second call on the already-clean store is a no-op
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("cleanup on clean store must be a no-op: %v", err)
	}
	if _, err := store.Load(ctx); err != domain.ErrRecordNotFound {
		t.Fatalf("store state changed by second cleanup: %v", err)
	}
}

func TestFileStore_Clear(t *testing.T) {
	store, clock := newFileStoreForTest(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, validRecord(clock)); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if state := store.AuthState(ctx); state.IsAuthenticated {
		t.Error("cleared store must not be authenticated")
	}

	// Clearing an already-empty store succeeds
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear on empty store: %v", err)
	}
}
