package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namhsc/tvtl-sub000/domain"
	"github.com/namhsc/tvtl-sub000/internal/services"
)

func TestLoginFlow(t *testing.T) {
	server := NewPlatformServer()
	defer server.Close()
	stack := NewClientStack(t, server, StackOptions{})

	t.Run("complete journey: login -> profile -> logout", func(t *testing.T) {
		result, err := stack.Session.Login(context.Background(), domain.LoginRequest{
			Phone:    "0900000001",
			Password: "secret1",
		})
		require.NoError(t, err)
		require.True(t, result.OK)
		assert.True(t, result.Completed)
		assert.Equal(t, "0900000001", result.User.Phone)

		snap := stack.Session.Snapshot()
		assert.True(t, snap.IsAuthenticated(time.Now()))
		assert.Equal(t, []string{domain.RoleStudent}, snap.User.Roles)

		// Tokens survive in the store for the next process
		token, err := stack.Store.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, snap.AccessToken, token)

		user, err := stack.Session.Profile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Trần Thị Bình", user.FullName)
		assert.Equal(t, 50, user.Points)

		require.NoError(t, stack.Session.Logout(context.Background()))
		assert.False(t, stack.Session.Snapshot().IsAuthenticated(time.Now()))
		assert.False(t, stack.Store.AuthState(context.Background()).IsAuthenticated)
	})

	t.Run("wrong password surfaces the server message", func(t *testing.T) {
		result, err := stack.Session.Login(context.Background(), domain.LoginRequest{
			Phone:    "0900000001",
			Password: "wrong-1",
		})
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, "Sai số điện thoại hoặc mật khẩu", result.Message)
		assert.False(t, stack.Session.Snapshot().IsAuthenticated(time.Now()))
	})
}

func TestRegistrationFlow(t *testing.T) {
	server := NewPlatformServer()
	defer server.Close()
	stack := NewClientStack(t, server, StackOptions{})

	phone := "0912345678"
	password := "secret1"

	// Step 1: request a code for the new number
	err := stack.Session.SendOTP(context.Background(), domain.SendOTPRequest{
		Phone:   phone,
		Method:  domain.OTPMethodSMS,
		Purpose: domain.OTPPurposeRegister,
	})
	require.NoError(t, err)
	require.Equal(t, 1, server.OTPSends())

	// Step 2: the verification screen hands the completed code to Register
	var registerResult *domain.LoginResult
	var challenge *services.OTPChallenge
	challenge, err = services.NewOTPChallenge(
		services.OTPContext{Phone: phone, Password: password, Method: domain.OTPMethodSMS, Purpose: domain.OTPPurposeRegister},
		stack.Session,
		func(code string) {
			result, regErr := stack.Session.Register(context.Background(), domain.RegisterRequest{
				Phone:    phone,
				Password: password,
				OTPCode:  code,
			})
			require.NoError(t, regErr)
			registerResult = result
			if result.OK {
				challenge.MarkVerified()
			} else {
				challenge.SubmitFailed(result.Message)
			}
		},
		services.OTPChallengeConfig{},
	)
	require.NoError(t, err)
	defer challenge.Close()

	challenge.Paste(fixedOTPCode)

	require.NotNil(t, registerResult)
	require.True(t, registerResult.OK)
	assert.False(t, registerResult.Completed, "fresh accounts start with an incomplete profile")
	assert.True(t, challenge.Verified())

	snap := stack.Session.Snapshot()
	assert.True(t, snap.IsAuthenticated(time.Now()))
	assert.Equal(t, []string{domain.RoleStudent}, snap.User.Roles)

	// The new account works with a plain login as well
	result, err := stack.Session.Login(context.Background(), domain.LoginRequest{Phone: phone, Password: password})
	require.NoError(t, err)
	assert.True(t, result.OK, "registered account must be able to sign in")
}

func TestSessionSurvivesRestart(t *testing.T) {
	server := NewPlatformServer()
	defer server.Close()
	stack := NewClientStack(t, server, StackOptions{})

	_, err := stack.Session.Login(context.Background(), domain.LoginRequest{Phone: "0900000001", Password: "secret1"})
	require.NoError(t, err)

	// A second controller over the same store file is a fresh process
	restarted := NewClientStack(t, server, StackOptions{StorePath: stack.StorePath})
	snap := restarted.Session.Snapshot()
	assert.True(t, snap.IsInitialized)
	assert.True(t, snap.IsAuthenticated(time.Now()))
	require.NotNil(t, snap.User)
	assert.Equal(t, "0900000001", snap.User.Phone)
}

func TestTokenRefreshRotation(t *testing.T) {
	server := NewPlatformServer()
	defer server.Close()
	// Grace wider than the token TTL makes every EnsureFresh refresh
	stack := NewClientStack(t, server, StackOptions{RefreshGrace: 20 * time.Minute})

	_, err := stack.Session.Login(context.Background(), domain.LoginRequest{Phone: "0900000001", Password: "secret1"})
	require.NoError(t, err)
	before := stack.Session.Snapshot()

	require.NoError(t, stack.Session.EnsureFresh(context.Background()))
	after := stack.Session.Snapshot()
	assert.NotEqual(t, before.AccessToken, after.AccessToken, "access token must rotate")
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken, "refresh token must rotate")

	token, err := stack.Store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, after.AccessToken, token, "rotated tokens must be persisted")

	// The rotated-out refresh token is single use; the next refresh must
	// use the new one and succeed
	require.NoError(t, stack.Session.EnsureFresh(context.Background()))
}

func TestRevokedSessionFailsClosed(t *testing.T) {
	server := NewPlatformServer()
	defer server.Close()
	stack := NewClientStack(t, server, StackOptions{RefreshGrace: 20 * time.Minute})

	_, err := stack.Session.Login(context.Background(), domain.LoginRequest{Phone: "0900000001", Password: "secret1"})
	require.NoError(t, err)

	server.RevokeRefreshTokens()

	err = stack.Session.EnsureFresh(context.Background())
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.False(t, stack.Session.Snapshot().IsAuthenticated(time.Now()))
	assert.False(t, stack.Store.AuthState(context.Background()).IsAuthenticated, "revoked session must not linger on disk")
}

func TestPasswordResetFlow(t *testing.T) {
	server := NewPlatformServer()
	defer server.Close()
	stack := NewClientStack(t, server, StackOptions{})

	phone := "0900000001"

	err := stack.Session.SendOTP(context.Background(), domain.SendOTPRequest{
		Phone:   phone,
		Method:  domain.OTPMethodZalo,
		Purpose: domain.OTPPurposeResetPassword,
	})
	require.NoError(t, err)

	err = stack.Session.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Phone:           phone,
		OTPCode:         fixedOTPCode,
		NewPassword:     "secret2",
		ConfirmPassword: "secret2",
	})
	require.NoError(t, err)
	assert.False(t, stack.Session.Snapshot().IsAuthenticated(time.Now()), "reset must not sign the user in")

	// Old password is gone, the new one works
	result, err := stack.Session.Login(context.Background(), domain.LoginRequest{Phone: phone, Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, result.OK)

	result, err = stack.Session.Login(context.Background(), domain.LoginRequest{Phone: phone, Password: "secret2"})
	require.NoError(t, err)
	assert.True(t, result.OK)
}
