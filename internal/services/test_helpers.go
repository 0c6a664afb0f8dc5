package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/domain"
	"github.com/namhsc/tvtl-sub000/internal/mocks"
)

// sessionServiceFixture bundles a session controller with its mock
// collaborators for tests.
type sessionServiceFixture struct {
	svc   *SessionService
	api   *mocks.MockAuthAPI
	store *mocks.MockTokenStore
	clock *mocks.MockClock
	sink  *mocks.MockEventSink
}

// newSessionServiceForTest creates a SessionService over fresh mocks. The
// store may be pre-seeded before calling to exercise the bootstrap path.
func newSessionServiceForTest(t *testing.T, store *mocks.MockTokenStore) *sessionServiceFixture {
	t.Helper()

	if store == nil {
		store = mocks.NewMockTokenStore()
	}
	api := mocks.NewMockAuthAPI()
	clock := mocks.NewMockClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	sink := mocks.NewMockEventSink()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc := NewSessionService(context.Background(), api, store, SessionServiceOptions{
		Clock:        clock,
		Sink:         sink,
		Logger:       logger,
		RefreshGrace: 2 * time.Minute,
	})
	return &sessionServiceFixture{svc: svc, api: api, store: store, clock: clock, sink: sink}
}

// validLoginRequest returns credentials that pass local validation
func validLoginRequest() domain.LoginRequest {
	return domain.LoginRequest{Phone: "0912345678", Password: "secret1"}
}
