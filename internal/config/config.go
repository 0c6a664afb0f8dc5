package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/namhsc/tvtl-sub000/domain"
)

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

type APIConfig struct {
	BaseURL       string `yaml:"base_url"`
	Timeout       string `yaml:"timeout"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelay    string `yaml:"retry_delay"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type SessionConfig struct {
	RefreshGrace string `yaml:"refresh_grace"`
	ExpiryGrace  string `yaml:"expiry_grace"`
}

type OTPConfig struct {
	Digits       int `yaml:"digits"`
	ResendWindow int `yaml:"resend_window"`
}

type GuardConfig struct {
	LoginPath      string `yaml:"login_path"`
	DefaultLanding string `yaml:"default_landing"`
	AdminLanding   string `yaml:"admin_landing"`
	RoutesPath     string `yaml:"routes_path"`
}

type ConfigFile struct {
	App     AppConfig     `yaml:"app"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	OTP     OTPConfig     `yaml:"otp"`
	Guard   GuardConfig   `yaml:"guard"`
}

type Config struct {
	AppName        string
	Environment    string
	LogLevel       string
	APIBaseURL     string
	APITimeout     time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	StorageBackend string
	StoragePath    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RefreshGrace   time.Duration
	ExpiryGrace    time.Duration
	OTPDigits      int
	ResendWindow   int
	LoginPath      string
	DefaultLanding string
	AdminLanding   string
	Routes         []domain.RouteRule
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() (*Config, error) {
	// Local overrides live in .env; absence is not an error
	_ = godotenv.Load()

	configFile, err := loadConfigFile(env("CONFIG_PATH", "config/config.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	timeout, err := time.ParseDuration(configFile.API.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid API timeout: %w", err)
	}

	retryDelay, err := time.ParseDuration(configFile.API.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid API retry delay: %w", err)
	}

	refreshGrace, err := time.ParseDuration(configFile.Session.RefreshGrace)
	if err != nil {
		return nil, fmt.Errorf("invalid session refresh grace: %w", err)
	}

	expiryGrace, err := time.ParseDuration(configFile.Session.ExpiryGrace)
	if err != nil {
		return nil, fmt.Errorf("invalid session expiry grace: %w", err)
	}

	routes, err := loadRouteRules(configFile.Guard.RoutesPath)
	if err != nil {
		return nil, err
	}

	return &Config{
		AppName:        configFile.App.Name,
		Environment:    configFile.App.Environment,
		LogLevel:       env("LOG_LEVEL", configFile.App.LogLevel),
		APIBaseURL:     env("API_BASE_URL", configFile.API.BaseURL),
		APITimeout:     timeout,
		RetryAttempts:  configFile.API.RetryAttempts,
		RetryDelay:     retryDelay,
		StorageBackend: env("STORAGE_BACKEND", configFile.Storage.Backend),
		StoragePath:    env("STORAGE_PATH", configFile.Storage.Path),
		RedisAddr:      env("REDIS_ADDR", configFile.Storage.Redis.Addr),
		RedisPassword:  env("REDIS_PASSWORD", configFile.Storage.Redis.Password),
		RedisDB:        configFile.Storage.Redis.DB,
		RefreshGrace:   refreshGrace,
		ExpiryGrace:    expiryGrace,
		OTPDigits:      configFile.OTP.Digits,
		ResendWindow:   configFile.OTP.ResendWindow,
		LoginPath:      configFile.Guard.LoginPath,
		DefaultLanding: configFile.Guard.DefaultLanding,
		AdminLanding:   configFile.Guard.AdminLanding,
		Routes:         routes,
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func loadRouteRules(path string) ([]domain.RouteRule, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read route rules file: %w", err)
	}

	var rules struct {
		Routes []domain.RouteRule `yaml:"routes"`
	}
	if err := yaml.Unmarshal(bytes, &rules); err != nil {
		return nil, fmt.Errorf("could not parse route rules yaml: %w", err)
	}
	return rules.Routes, nil
}
