package domain

import (
	"context"
	"time"
)

// TokenStore defines durable persistence for the token tuple and profile
// snapshot. Pure storage semantics: it never initiates state changes, only
// stores and retrieves what it is told. Save and Clear must be atomic from
// a concurrent reader's perspective.
type TokenStore interface {
	Save(ctx context.Context, record *TokenRecord) error
	Load(ctx context.Context) (*TokenRecord, error)
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	AuthState(ctx context.Context) AuthState
	CleanupExpired(ctx context.Context) error
	Clear(ctx context.Context) error
}

// AuthAPI maps auth intents to HTTP calls against the platform API. Every
// method resolves to a normalized envelope; the returned error is non-nil
// only for invalid usage or a cancelled context, never for transport or
// server failures (those resolve to Success=false).
type AuthAPI interface {
	SendOTP(ctx context.Context, req SendOTPRequest) (*Envelope, error)
	Login(ctx context.Context, req LoginRequest) (*Envelope, error)
	Register(ctx context.Context, req RegisterRequest) (*Envelope, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (*Envelope, error)
	RefreshToken(ctx context.Context, req RefreshRequest) (*Envelope, error)
	Logout(ctx context.Context, accessToken string) (*Envelope, error)
	Profile(ctx context.Context, accessToken string) (*Envelope, error)
}

// SessionController orchestrates the auth sequences and is the sole mutator
// of the Session state.
type SessionController interface {
	Snapshot() Session
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)
	SendOTP(ctx context.Context, req SendOTPRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	EnsureFresh(ctx context.Context) error
	Profile(ctx context.Context) (*UserProfile, error)
	Logout(ctx context.Context) error
}

// OTPSender is the slice of the session controller the OTP challenge needs
// for resends.
type OTPSender interface {
	SendOTP(ctx context.Context, req SendOTPRequest) error
}

// TokenInspector reads expiry bookkeeping out of an opaque access token.
type TokenInspector interface {
	ExpiresAt(token string) (time.Time, error)
}

// PolicyService answers role/route permission questions.
type PolicyService interface {
	AddRule(role, path string) error
	Allow(role, path string) (bool, error)
	Rules() [][]string
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// EventSink receives session audit events.
type EventSink interface {
	Publish(event *SessionEvent)
}
