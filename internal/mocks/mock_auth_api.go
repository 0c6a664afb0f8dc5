package mocks

import (
	"context"
	"sync/atomic"

	"github.com/namhsc/tvtl-sub000/domain"
)

// MockAuthAPI implements domain.AuthAPI for testing. Defaults resolve to a
// successful envelope with a fixed token pair; call counters support the
// single-dispatch assertions.
type MockAuthAPI struct {
	SendOTPFunc       func(ctx context.Context, req domain.SendOTPRequest) (*domain.Envelope, error)
	LoginFunc         func(ctx context.Context, req domain.LoginRequest) (*domain.Envelope, error)
	RegisterFunc      func(ctx context.Context, req domain.RegisterRequest) (*domain.Envelope, error)
	ResetPasswordFunc func(ctx context.Context, req domain.ResetPasswordRequest) (*domain.Envelope, error)
	RefreshTokenFunc  func(ctx context.Context, req domain.RefreshRequest) (*domain.Envelope, error)
	LogoutFunc        func(ctx context.Context, accessToken string) (*domain.Envelope, error)
	ProfileFunc       func(ctx context.Context, accessToken string) (*domain.Envelope, error)

	LoginCalls    int32
	RegisterCalls int32
	SendOTPCalls  int32
	RefreshCalls  int32
	LogoutCalls   int32
}

// NewMockAuthAPI creates a new MockAuthAPI with default behaviors
func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{}
}

// DefaultEnvelope is the successful auth payload the defaults resolve to
func DefaultEnvelope() *domain.Envelope {
	return &domain.Envelope{
		Success: true,
		Data: &domain.AuthPayload{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    900,
			User:         &domain.UserProfile{ID: 1, Phone: "0912345678", Roles: []string{domain.RoleStudent}},
		},
	}
}

// SendOTP dispatches a one-time code
func (m *MockAuthAPI) SendOTP(ctx context.Context, req domain.SendOTPRequest) (*domain.Envelope, error) {
	atomic.AddInt32(&m.SendOTPCalls, 1)
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, req)
	}
	return &domain.Envelope{Success: true}, nil
}

// Login exchanges credentials for a token pair
func (m *MockAuthAPI) Login(ctx context.Context, req domain.LoginRequest) (*domain.Envelope, error) {
	atomic.AddInt32(&m.LoginCalls, 1)
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return DefaultEnvelope(), nil
}

// Register completes account creation
func (m *MockAuthAPI) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Envelope, error) {
	atomic.AddInt32(&m.RegisterCalls, 1)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return DefaultEnvelope(), nil
}

// ResetPassword finalizes a password change
func (m *MockAuthAPI) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*domain.Envelope, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, req)
	}
	return &domain.Envelope{Success: true}, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (m *MockAuthAPI) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.Envelope, error) {
	atomic.AddInt32(&m.RefreshCalls, 1)
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, req)
	}
	return DefaultEnvelope(), nil
}

// Logout invalidates the session server-side
func (m *MockAuthAPI) Logout(ctx context.Context, accessToken string) (*domain.Envelope, error) {
	atomic.AddInt32(&m.LogoutCalls, 1)
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accessToken)
	}
	return &domain.Envelope{Success: true}, nil
}

// Profile fetches the current user profile
func (m *MockAuthAPI) Profile(ctx context.Context, accessToken string) (*domain.Envelope, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, accessToken)
	}
	return DefaultEnvelope(), nil
}

// Compile-time interface compliance verification
var _ domain.AuthAPI = (*MockAuthAPI)(nil)
