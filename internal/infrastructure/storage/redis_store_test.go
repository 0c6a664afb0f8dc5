package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/namhsc/tvtl-sub000/domain"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	t.Cleanup(func() {
		mr.Close()
	})

	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func newRedisStoreForTest(t *testing.T, grace time.Duration) (*RedisStore, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	client := setupTestRedis(t)
	return NewRedisStore(client, "tvtl:session:test", grace, clock), clock
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, clock := newRedisStoreForTest(t, 30*time.Second)
	ctx := context.Background()

	if err := store.Save(ctx, validRecord(clock)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AccessToken != "A" || loaded.RefreshToken != "R" {
		t.Errorf("unexpected tokens: %+v", loaded)
	}

	// Key TTL must cover the record lifetime
	ttl := store.client.TTL(ctx, store.key).Val()
	if ttl <= 0 {
		t.Error("expected TTL to be set on the session key")
	}
}

func TestRedisStore_NoExpiryRecordPersistsWithoutTTL(t *testing.T) {
	store, clock := newRedisStoreForTest(t, 30*time.Second)
	ctx := context.Background()

	record := validRecord(clock)
	record.ExpiresAt = time.Time{}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A non-expiring record must not be reclaimed by Redis
	ttl := store.client.TTL(ctx, store.key).Val()
	if ttl > 0 {
		t.Errorf("TTL = %v, want none for a non-expiring record", ttl)
	}

	state := store.AuthState(ctx)
	if !state.IsAuthenticated || !state.HasValidSession {
		t.Errorf("AuthState = %+v, want authenticated", state)
	}
}

func TestRedisStore_SaveRejectsPartialTuple(t *testing.T) {
	store, clock := newRedisStoreForTest(t, 0)
	ctx := context.Background()

	record := &domain.TokenRecord{AccessToken: "A", ExpiresAt: clock.Now().Add(time.Minute)}
	if err := store.Save(ctx, record); err != domain.ErrPartialRecord {
		t.Errorf("Save = %v, want ErrPartialRecord", err)
	}
}

func TestRedisStore_CorruptValueReadsAsAbsent(t *testing.T) {
	store, _ := newRedisStoreForTest(t, 0)
	ctx := context.Background()

	store.client.Set(ctx, store.key, "{not json", 0)
	if _, err := store.Load(ctx); err != domain.ErrRecordCorrupt {
		t.Fatalf("Load = %v, want ErrRecordCorrupt", err)
	}
	if exists := store.client.Exists(ctx, store.key).Val(); exists != 0 {
		t.Error("corrupt value should have been deleted")
	}
}

func TestRedisStore_CleanupExpiredIsIdempotent(t *testing.T) {
	store, clock := newRedisStoreForTest(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, validRecord(clock)); err != nil {
		t.Fatal(err)
	}

	clock.Advance(16 * time.Minute)
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx); err != domain.ErrRecordNotFound {
		t.Fatalf("record should be gone after cleanup, got %v", err)
	}
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("cleanup on clean store must be a no-op: %v", err)
	}
}

func TestRedisStore_AuthState(t *testing.T) {
	store, clock := newRedisStoreForTest(t, time.Minute)
	ctx := context.Background()

	if state := store.AuthState(ctx); state.IsAuthenticated {
		t.Error("empty store must not be authenticated")
	}

	if err := store.Save(ctx, validRecord(clock)); err != nil {
		t.Fatal(err)
	}
	if state := store.AuthState(ctx); !state.IsAuthenticated || !state.HasValidSession {
		t.Errorf("expected authenticated state, got %+v", state)
	}

	clock.Advance(15*time.Minute + 10*time.Second)
	state := store.AuthState(ctx)
	if state.IsAuthenticated {
		t.Error("expired token must not read authenticated")
	}
	if !state.HasValidSession {
		t.Error("session within grace should still count as present")
	}
}

func TestRedisStore_Clear(t *testing.T) {
	store, clock := newRedisStoreForTest(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, validRecord(clock)); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx); err != domain.ErrRecordNotFound {
		t.Fatalf("expected cleared store, got %v", err)
	}
}
