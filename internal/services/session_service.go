package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/domain"
)

const (
	msgMalformedResponse = "Đã xảy ra lỗi. Vui lòng thử lại sau."
	msgSignedOut         = "Phiên đã đăng xuất. Vui lòng đăng nhập lại."
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SessionServiceOptions carries the optional collaborators of the session
// controller.
type SessionServiceOptions struct {
	Inspector    domain.TokenInspector
	Clock        domain.Clock
	Sink         domain.EventSink
	Logger       *logrus.Logger
	RefreshGrace time.Duration
}

// SessionService implements domain.SessionController. It is the only
// component that mutates the Session; the token store is its passive
// persistence delegate. Mutating operations are serialized by the loading
// guard: a second call while one is in flight is rejected immediately, not
// queued. A generation counter makes logout invalidate whatever was in
// flight, so a stale completion can never resurrect a cleared session.
type SessionService struct {
	api          domain.AuthAPI
	store        domain.TokenStore
	inspector    domain.TokenInspector
	clock        domain.Clock
	sink         domain.EventSink
	log          *logrus.Entry
	refreshGrace time.Duration

	mu    sync.Mutex
	state domain.Session
	gen   uint64
}

// NewSessionService creates the session controller and synchronously runs
// the first auth check: expired persisted tokens are cleaned up, a valid
// pair restores the session. IsInitialized is true once this returns,
// regardless of outcome.
func NewSessionService(ctx context.Context, api domain.AuthAPI, store domain.TokenStore, opts SessionServiceOptions) *SessionService {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	refreshGrace := opts.RefreshGrace
	if refreshGrace <= 0 {
		refreshGrace = 2 * time.Minute
	}

	s := &SessionService{
		api:          api,
		store:        store,
		inspector:    opts.Inspector,
		clock:        clock,
		sink:         opts.Sink,
		log:          logger.WithField("component", "session"),
		refreshGrace: refreshGrace,
	}
	s.bootstrap(ctx)
	return s
}

func (s *SessionService) bootstrap(ctx context.Context) {
	if err := s.store.CleanupExpired(ctx); err != nil {
		s.log.WithError(err).Warn("token cleanup failed during bootstrap")
	}

	record, err := s.store.Load(ctx)
	if err == nil && !record.Expired(s.clock.Now(), 0) {
		s.state.AccessToken = record.AccessToken
		s.state.RefreshToken = record.RefreshToken
		s.state.ExpiresAt = record.ExpiresAt
		s.state.User = record.User
		s.publish(domain.NewSessionEvent(domain.SessionRestoredEvent).WithUser(record.User))
	}
	s.state.IsInitialized = true
}

// Snapshot implements domain.SessionController. The returned value never
// aliases controller state.
func (s *SessionService) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.User = s.state.User.Clone()
	return snap
}

// Login implements domain.SessionController
func (s *SessionService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if err := ValidatePhone(req.Phone); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	gen, err := s.begin()
	if err != nil {
		return nil, err
	}

	env, err := s.api.Login(ctx, req)
	if err != nil {
		s.abort(gen)
		return nil, err
	}
	if !env.Success {
		s.fail(gen, env.Message)
		s.publish(domain.NewSessionEvent(domain.LoginFailureEvent).WithPhone(req.Phone).WithError(env.Message))
		return &domain.LoginResult{Message: env.Message}, nil
	}

	return s.establish(ctx, gen, env, domain.LoginEvent, req.Phone)
}

// Register implements domain.SessionController. Success auto-authenticates,
// the same as login.
func (s *SessionService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResult, error) {
	if err := ValidatePhone(req.Phone); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := ValidateOTPCode(req.OTPCode); err != nil {
		return nil, err
	}

	gen, err := s.begin()
	if err != nil {
		return nil, err
	}

	env, err := s.api.Register(ctx, req)
	if err != nil {
		s.abort(gen)
		return nil, err
	}
	if !env.Success {
		s.fail(gen, env.Message)
		return &domain.LoginResult{Message: env.Message}, nil
	}

	return s.establish(ctx, gen, env, domain.RegistrationEvent, req.Phone)
}

// establish persists the token tuple and flips the session to
// authenticated. A failed save leaves the session unauthenticated: the
// store error is surfaced and the tokens are discarded.
func (s *SessionService) establish(ctx context.Context, gen uint64, env *domain.Envelope, event domain.SessionEventType, phone string) (*domain.LoginResult, error) {
	data := env.Data
	if data == nil || data.AccessToken == "" || data.RefreshToken == "" {
		s.fail(gen, msgMalformedResponse)
		return &domain.LoginResult{Message: msgMalformedResponse}, nil
	}

	record := &domain.TokenRecord{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    s.expiry(data),
		User:         data.User,
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.log.WithError(err).Error("failed to persist session")
		s.fail(gen, domain.ErrSessionPersist.Error())
		return &domain.LoginResult{Message: domain.ErrSessionPersist.Error()}, nil
	}

	s.mu.Lock()
	if s.gen != gen {
		// Logged out while the call was in flight; honor the logout.
		s.mu.Unlock()
		if err := s.store.Clear(ctx); err != nil {
			s.log.WithError(err).Warn("failed to clear store after stale auth completion")
		}
		return &domain.LoginResult{Message: msgSignedOut}, nil
	}
	s.state.AccessToken = record.AccessToken
	s.state.RefreshToken = record.RefreshToken
	s.state.ExpiresAt = record.ExpiresAt
	s.state.User = record.User
	s.state.Loading = false
	s.state.Error = ""
	s.mu.Unlock()

	s.publish(domain.NewSessionEvent(event).WithUser(record.User).WithPhone(phone))

	completed := false
	if data.Completed != nil {
		completed = *data.Completed
	} else if data.User != nil {
		completed = data.User.Completed
	}
	return &domain.LoginResult{
		OK:        true,
		Completed: completed,
		User:      record.User.Clone(),
	}, nil
}

// SendOTP implements domain.SessionController. It never touches the
// authentication state; only loading and error wrap the dispatch call.
func (s *SessionService) SendOTP(ctx context.Context, req domain.SendOTPRequest) error {
	if err := ValidatePhone(req.Phone); err != nil {
		return err
	}
	if err := ValidateOTPMethod(req.Method); err != nil {
		return err
	}
	if req.Method == "" {
		req.Method = domain.OTPMethodSMS
	}

	gen, err := s.begin()
	if err != nil {
		return err
	}

	env, err := s.api.SendOTP(ctx, req)
	if err != nil {
		s.abort(gen)
		return err
	}
	if !env.Success {
		s.fail(gen, env.Message)
		s.publish(domain.NewSessionEvent(domain.OTPRequestEvent).WithPhone(req.Phone).WithError(env.Message))
		return fmt.Errorf("%w: %s", domain.ErrOTPDispatch, env.Message)
	}

	s.abort(gen)
	s.publish(domain.NewSessionEvent(domain.OTPRequestEvent).WithPhone(req.Phone).WithMetadata("method", string(req.Method)))
	return nil
}

// ResetPassword implements domain.SessionController. Success does not
// authenticate; the user logs in with the new password.
func (s *SessionService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	if err := ValidatePhone(req.Phone); err != nil {
		return err
	}
	if err := ValidateOTPCode(req.OTPCode); err != nil {
		return err
	}
	if err := ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}

	gen, err := s.begin()
	if err != nil {
		return err
	}

	env, err := s.api.ResetPassword(ctx, req)
	if err != nil {
		s.abort(gen)
		return err
	}
	if !env.Success {
		s.fail(gen, env.Message)
		return fmt.Errorf("%w: %s", domain.ErrRequestDeclined, env.Message)
	}

	s.abort(gen)
	s.publish(domain.NewSessionEvent(domain.PasswordResetEvent).WithPhone(req.Phone))
	return nil
}

// EnsureFresh implements domain.SessionController. Called before guarded
// navigations and authenticated API calls: refreshes the access token once
// it is within the grace window of expiring. An un-refreshable session is
// treated as logged out, never left ambiguous.
func (s *SessionService) EnsureFresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state.AccessToken == "" || s.state.RefreshToken == "" {
		s.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	now := s.clock.Now()
	if !s.state.ExpiresAt.IsZero() && now.Before(s.state.ExpiresAt.Add(-s.refreshGrace)) {
		s.mu.Unlock()
		return nil
	}
	if s.state.Loading {
		// Another mutating operation is in flight; do not interleave.
		s.mu.Unlock()
		return nil
	}
	s.state.Loading = true
	gen := s.gen
	refreshToken := s.state.RefreshToken
	user := s.state.User
	s.mu.Unlock()

	env, err := s.api.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		s.abort(gen)
		return err
	}

	data := env.Data
	if !env.Success || data == nil || data.AccessToken == "" {
		s.expire(ctx, gen)
		s.publish(domain.NewSessionEvent(domain.TokenRefreshFailureEvent).WithUser(user).WithError(env.Message))
		return domain.ErrSessionExpired
	}

	record := &domain.TokenRecord{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    s.expiry(data),
		User:         user,
	}
	if record.RefreshToken == "" {
		// Server kept the same refresh token
		record.RefreshToken = refreshToken
	}
	if data.User != nil {
		record.User = data.User
	}

	if err := s.store.Save(ctx, record); err != nil {
		s.log.WithError(err).Error("failed to persist refreshed tokens")
		s.expire(ctx, gen)
		return domain.ErrSessionExpired
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if err := s.store.Clear(ctx); err != nil {
			s.log.WithError(err).Warn("failed to clear store after stale refresh")
		}
		return domain.ErrSessionExpired
	}
	s.state.AccessToken = record.AccessToken
	s.state.RefreshToken = record.RefreshToken
	s.state.ExpiresAt = record.ExpiresAt
	s.state.User = record.User
	s.state.Loading = false
	s.mu.Unlock()

	s.publish(domain.NewSessionEvent(domain.TokenRefreshEvent).WithUser(record.User))
	return nil
}

// Profile implements domain.SessionController. Refreshes the cached
// profile snapshot from the server, in memory and in the persisted record.
func (s *SessionService) Profile(ctx context.Context) (*domain.UserProfile, error) {
	s.mu.Lock()
	token := s.state.AccessToken
	s.mu.Unlock()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	env, err := s.api.Profile(ctx, token)
	if err != nil {
		return nil, err
	}
	if !env.Success || env.Data == nil || env.Data.User == nil {
		return nil, domain.ErrNotAuthenticated
	}

	user := env.Data.User
	s.mu.Lock()
	if s.state.AccessToken == token {
		s.state.User = user
	}
	s.mu.Unlock()

	if record, loadErr := s.store.Load(ctx); loadErr == nil {
		record.User = user
		if saveErr := s.store.Save(ctx, record); saveErr != nil {
			s.log.WithError(saveErr).Warn("failed to persist refreshed profile")
		}
	}
	return user.Clone(), nil
}

// Logout implements domain.SessionController. Local clearing is
// unconditional and always succeeds; the server-side call is best effort.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	user := s.state.User
	token := s.state.AccessToken
	s.state = domain.Session{IsInitialized: true}
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("failed to clear persisted session")
	}

	if token != "" {
		if _, err := s.api.Logout(ctx, token); err != nil {
			s.log.WithError(err).Debug("server-side logout failed")
		}
	}

	s.publish(domain.NewSessionEvent(domain.LogoutEvent).WithUser(user))
	return nil
}

// begin flips the loading guard on, rejecting the call if another mutating
// operation is in flight. Returns the generation the operation belongs to.
func (s *SessionService) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Loading {
		return 0, domain.ErrOperationInProgress
	}
	s.state.Loading = true
	s.state.Error = ""
	return s.gen, nil
}

// abort clears the loading guard without touching anything else. Used both
// for clean completions without state changes and for discarded results.
func (s *SessionService) abort(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state.Loading = false
	}
}

// fail records the operation's error message; authentication state is left
// untouched (never partially authenticated).
func (s *SessionService) fail(gen uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.state.Loading = false
	s.state.Error = msg
}

// expire performs the logout steps for a session that failed to refresh.
func (s *SessionService) expire(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.state = domain.Session{IsInitialized: true}
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("failed to clear expired session")
	}
	s.publish(domain.NewSessionEvent(domain.SessionExpiredEvent))
}

func (s *SessionService) expiry(data *domain.AuthPayload) time.Time {
	if data.ExpiresIn > 0 {
		return s.clock.Now().Add(time.Duration(data.ExpiresIn) * time.Second)
	}
	if s.inspector != nil {
		if exp, err := s.inspector.ExpiresAt(data.AccessToken); err == nil {
			return exp
		}
	}
	return time.Time{}
}

func (s *SessionService) publish(event *domain.SessionEvent) {
	if s.sink != nil {
		s.sink.Publish(event)
	}
}

var _ domain.SessionController = (*SessionService)(nil)
var _ domain.OTPSender = (*SessionService)(nil)
