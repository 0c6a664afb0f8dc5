package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/domain"
	"github.com/namhsc/tvtl-sub000/internal/config"
	"github.com/namhsc/tvtl-sub000/internal/infrastructure/audit"
	"github.com/namhsc/tvtl-sub000/internal/infrastructure/auth"
	"github.com/namhsc/tvtl-sub000/internal/infrastructure/authapi"
	"github.com/namhsc/tvtl-sub000/internal/infrastructure/storage"
	"github.com/namhsc/tvtl-sub000/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *logrus.Logger

	// Infrastructure
	RedisClient *redis.Client
	TokenStore  domain.TokenStore
	API         domain.AuthAPI
	Inspector   domain.TokenInspector
	Sink        domain.EventSink

	// Services
	Session   domain.SessionController
	PolicySvc domain.PolicyService
	Guard     *services.RouteGuard
}

// NewContainer creates and initializes all dependencies
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	container.initLogger()
	if err := container.initStorage(ctx); err != nil {
		return nil, err
	}
	container.initInfrastructure()
	if err := container.initServices(ctx); err != nil {
		return nil, err
	}

	return container, nil
}

func (c *Container) initLogger() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.Config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	c.Logger = logger
}

func (c *Container) initStorage(ctx context.Context) error {
	switch strings.ToLower(c.Config.StorageBackend) {
	case "", "file":
		c.TokenStore = storage.NewFileStore(c.Config.StoragePath, c.Config.ExpiryGrace, nil)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.Config.RedisAddr,
			Password: c.Config.RedisPassword,
			DB:       c.Config.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.RedisClient = client
		c.TokenStore = storage.NewRedisStore(client, "tvtl:session", c.Config.ExpiryGrace, nil)
	default:
		return fmt.Errorf("unknown storage backend %q", c.Config.StorageBackend)
	}
	return nil
}

func (c *Container) initInfrastructure() {
	c.API = authapi.NewClient(authapi.Config{
		BaseURL:       c.Config.APIBaseURL,
		Timeout:       c.Config.APITimeout,
		RetryAttempts: c.Config.RetryAttempts,
		RetryDelay:    c.Config.RetryDelay,
	}, c.Logger)
	c.Inspector = auth.NewJWTInspector()
	c.Sink = audit.NewLogrusSink(c.Logger)
}

func (c *Container) initServices(ctx context.Context) error {
	policySvc, err := services.NewPolicyService(c.Config.Routes)
	if err != nil {
		return fmt.Errorf("failed to build route policy: %w", err)
	}
	c.PolicySvc = policySvc

	c.Session = services.NewSessionService(ctx, c.API, c.TokenStore, services.SessionServiceOptions{
		Inspector:    c.Inspector,
		Sink:         c.Sink,
		Logger:       c.Logger,
		RefreshGrace: c.Config.RefreshGrace,
	})

	c.Guard = services.NewRouteGuard(policySvc, nil, c.Sink, c.Logger, services.GuardPaths{
		Login:          c.Config.LoginPath,
		DefaultLanding: c.Config.DefaultLanding,
		AdminLanding:   c.Config.AdminLanding,
	})
	return nil
}

// Close releases held connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}
