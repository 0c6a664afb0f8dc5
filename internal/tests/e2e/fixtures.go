package e2e

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/internal/infrastructure/auth"
	"github.com/namhsc/tvtl-sub000/internal/infrastructure/authapi"
	"github.com/namhsc/tvtl-sub000/internal/infrastructure/storage"
	"github.com/namhsc/tvtl-sub000/internal/services"
)

// ClientStack is the full client wiring under test: real HTTP client, real
// file-backed token store, real session controller, fake platform server.
type ClientStack struct {
	Server    *PlatformServer
	Store     *storage.FileStore
	Session   *services.SessionService
	StorePath string
}

// StackOptions tunes the stack for individual flows.
type StackOptions struct {
	// RefreshGrace wider than the access token TTL forces a refresh on
	// every EnsureFresh call.
	RefreshGrace time.Duration
	// StorePath reuses an existing store file to simulate an app restart.
	StorePath string
}

// NewClientStack builds a client stack against the given server.
func NewClientStack(t *testing.T, server *PlatformServer, opts StackOptions) *ClientStack {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	storePath := opts.StorePath
	if storePath == "" {
		storePath = filepath.Join(t.TempDir(), "session.json")
	}
	store := storage.NewFileStore(storePath, 30*time.Second, nil)

	client := authapi.NewClient(authapi.Config{
		BaseURL:       server.URL(),
		Timeout:       5 * time.Second,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}, logger)

	session := services.NewSessionService(context.Background(), client, store, services.SessionServiceOptions{
		Inspector:    auth.NewJWTInspector(),
		Logger:       logger,
		RefreshGrace: opts.RefreshGrace,
	})

	return &ClientStack{
		Server:    server,
		Store:     store,
		Session:   session,
		StorePath: storePath,
	}
}
