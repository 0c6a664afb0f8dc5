package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/namhsc/tvtl-sub000/domain"
)

// RedisStore implements domain.TokenStore on a single Redis key holding the
// whole record as one JSON value, so a reader observes either the previous
// tuple or the new one. Used by kiosk deployments where several terminals
// share one client session.
type RedisStore struct {
	client *redis.Client
	key    string
	grace  time.Duration
	clock  domain.Clock
}

// NewRedisStore creates a Redis-backed token store. A nil clock falls back
// to the system clock.
func NewRedisStore(client *redis.Client, key string, grace time.Duration, clock domain.Clock) *RedisStore {
	if clock == nil {
		clock = systemClock{}
	}
	if key == "" {
		key = "tvtl:session"
	}
	return &RedisStore{
		client: client,
		key:    key,
		grace:  grace,
		clock:  clock,
	}
}

// Save implements domain.TokenStore. The key TTL tracks the record expiry
// plus the grace window so Redis reclaims abandoned sessions on its own.
func (s *RedisStore) Save(ctx context.Context, record *domain.TokenRecord) error {
	if !record.Complete() {
		return domain.ErrPartialRecord
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	// A non-expiring record gets no TTL; everything else is reclaimed by
	// Redis once the grace window passes.
	var ttl time.Duration
	if !record.ExpiresAt.IsZero() {
		ttl = record.ExpiresAt.Add(s.grace).Sub(s.clock.Now())
		if ttl <= 0 {
			ttl = time.Second
		}
	}

	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionPersist, err)
	}
	return nil
}

// Load implements domain.TokenStore. A corrupt or partial record is cleared
// and reads as absent.
func (s *RedisStore) Load(ctx context.Context) (*domain.TokenRecord, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read token record: %w", err)
	}

	var record domain.TokenRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		s.client.Del(ctx, s.key)
		return nil, domain.ErrRecordCorrupt
	}

	if !record.Complete() {
		s.client.Del(ctx, s.key)
		return nil, domain.ErrRecordNotFound
	}

	return &record, nil
}

// AccessToken implements domain.TokenStore
func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	record, err := s.Load(ctx)
	if err != nil {
		return "", nil
	}
	return record.AccessToken, nil
}

// RefreshToken implements domain.TokenStore
func (s *RedisStore) RefreshToken(ctx context.Context) (string, error) {
	record, err := s.Load(ctx)
	if err != nil {
		return "", nil
	}
	return record.RefreshToken, nil
}

// AuthState implements domain.TokenStore
func (s *RedisStore) AuthState(ctx context.Context) domain.AuthState {
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

// CleanupExpired implements domain.TokenStore
func (s *RedisStore) CleanupExpired(ctx context.Context) error {
	record, err := s.Load(ctx)
	if err != nil {
		return nil
	}

	if record.Expired(s.clock.Now(), s.grace) {
		return s.Clear(ctx)
	}
	return nil
}

// Clear implements domain.TokenStore
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear token record: %w", err)
	}
	return nil
}

var _ domain.TokenStore = (*RedisStore)(nil)
