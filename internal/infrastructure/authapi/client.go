package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/domain"
)

// User-facing messages for failures the server never got to describe.
const (
	msgNetworkFailure = "Không thể kết nối đến máy chủ. Vui lòng thử lại."
	msgServerError    = "Đã xảy ra lỗi. Vui lòng thử lại sau."
)

// Config holds the HTTP client settings.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Client implements domain.AuthAPI against the platform's REST API. Every
// outcome resolves to a normalized envelope; transport failures and 5xx
// responses are retried a bounded number of times with linear backoff and
// then resolve to Success=false. The returned error is non-nil only for a
// cancelled context or invalid usage, applied uniformly across methods.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
	delay    time.Duration
	log      *logrus.Entry
}

// NewClient creates a new auth API client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		attempts: attempts,
		delay:    cfg.RetryDelay,
		log:      logger.WithField("component", "authapi"),
	}
}

// SendOTP implements domain.AuthAPI
func (c *Client) SendOTP(ctx context.Context, req domain.SendOTPRequest) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/auth/otp/send", req, "")
}

// Login implements domain.AuthAPI
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/auth/login", req, "")
}

// Register implements domain.AuthAPI
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/auth/register", req, "")
}

// ResetPassword implements domain.AuthAPI
func (c *Client) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/auth/password/reset", req, "")
}

// RefreshToken implements domain.AuthAPI
func (c *Client) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/auth/refresh", req, "")
}

// Logout implements domain.AuthAPI
func (c *Client) Logout(ctx context.Context, accessToken string) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, accessToken)
}

// Profile implements domain.AuthAPI
func (c *Client) Profile(ctx context.Context, accessToken string) (*domain.Envelope, error) {
	return c.do(ctx, http.MethodGet, "/auth/me", nil, accessToken)
}

// do dispatches one intent with bounded retry. Retries are an explicit loop
// with linear backoff, never recursion; only network errors and 5xx
// responses are retried.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, bearer string) (*domain.Envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		req.Header.Set("X-Request-ID", uuid.NewString())

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.WithError(err).WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt,
			}).Warn("request failed")
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			c.log.WithFields(logrus.Fields{
				"path":    path,
				"status":  resp.StatusCode,
				"attempt": attempt,
			}).Warn("server error")
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		return normalize(resp.StatusCode, data), nil
	}

	c.log.WithError(lastErr).WithField("path", path).Error("request exhausted retries")
	return &domain.Envelope{Success: false, Message: msgNetworkFailure}, nil
}

// backoff waits delay*attempt before the next try, unless this was the last
// attempt or the context is cancelled.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	if attempt >= c.attempts {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.delay * time.Duration(attempt)):
		return nil
	}
}

// normalize maps a non-retryable response to the envelope contract. A body
// that does not parse as an envelope becomes a generic failure rather than
// leaking transport details to callers.
func normalize(status int, data []byte) *domain.Envelope {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &domain.Envelope{Success: false, Message: msgServerError}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		env.Success = false
		if env.Message == "" {
			env.Message = msgServerError
		}
	}

	if !env.Success && env.Message == "" {
		env.Message = msgServerError
	}

	return &env
}

var _ domain.AuthAPI = (*Client)(nil)
