package internal

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/itemdesk/internal/backend"
)

// Token modes for the client credential.
const (
	TokenModeStatic = "static"
	TokenModeJWT    = "jwt"
)

// Config represents the application configuration.
type Config struct {
	App           ApplicationConfig   `yaml:"app" envPrefix:"APP_"`
	Remote        RemoteConfig        `yaml:"remote" envPrefix:"REMOTE_"`
	Session       SessionConfig       `yaml:"session" envPrefix:"SESSION_"`
	Auth          AuthConfig          `yaml:"auth" envPrefix:"AUTH_"`
	Notifications NotificationsConfig `yaml:"notifications" envPrefix:"NOTIFICATIONS_"`
	Render        RenderConfig        `yaml:"render" envPrefix:"RENDER_"`
	Backend       BackendConfig       `yaml:"backend" envPrefix:"BACKEND_"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return c.Backend.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http" envPrefix:"HTTP_"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The front-end keeps one
// server-side session, so Host defaults to loopback; an empty Host listens
// on every interface.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.When(c.Host != "", is.Host)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RemoteConfig points at the item collection.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// SessionConfig holds the durable client storage location.
type SessionConfig struct {
	Dir string `yaml:"dir" env:"DIR"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// AuthConfig holds the identity provider and credential settings.
//
// TokenMode controls the bearer credential sent to the collection:
//   - "static" (default): StaticToken is sent as-is.
//   - "jwt": a short-lived HS256 token signed with JWTSecret.
type AuthConfig struct {
	DemoUsername string        `yaml:"demo_username" env:"DEMO_USERNAME"`
	DemoPassword string        `yaml:"demo_password" env:"DEMO_PASSWORD"`
	TokenMode    string        `yaml:"token_mode" env:"TOKEN_MODE"`
	StaticToken  string        `yaml:"static_token" env:"STATIC_TOKEN"`
	JWTSecret    string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	JWTTTL       time.Duration `yaml:"jwt_ttl" env:"JWT_TTL"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.TokenMode == "" {
		c.TokenMode = TokenModeStatic
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.TokenMode, validation.Required, validation.In(TokenModeStatic, TokenModeJWT)),
		validation.Field(&c.DemoPassword, validation.When(c.DemoUsername != "", validation.Required)),
	); err != nil {
		return err
	}
	switch c.TokenMode {
	case TokenModeStatic:
		if c.StaticToken == "" {
			return fmt.Errorf("token mode is %q but static_token is empty", TokenModeStatic)
		}
	case TokenModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("token mode is %q but jwt_secret is empty", TokenModeJWT)
		}
		if c.JWTTTL <= time.Minute {
			return fmt.Errorf("jwt_ttl must exceed one minute, got %s", c.JWTTTL)
		}
	}
	return nil
}

// NotificationsConfig controls transient messages.
type NotificationsConfig struct {
	DismissAfter time.Duration `yaml:"dismiss_after" env:"DISMISS_AFTER"`
}

// RenderConfig controls how items are displayed.
type RenderConfig struct {
	// Timezone is an IANA name; empty means the local zone.
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	_, err := c.Location()
	return err
}

// Location resolves Timezone.
func (c *RenderConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BackendConfig configures the reference item collection.
//
// AuthMode controls how it checks bearer credentials:
//   - "disabled": no authentication required, suitable for local dev.
//   - "token" (default): Token must match; Token must be non-empty.
//   - "jwt": HS256 tokens signed with JWTSecret.
type BackendConfig struct {
	Host       string `yaml:"host" env:"HOST"`
	Port       int    `yaml:"port" env:"PORT"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	AuthMode   string `yaml:"auth_mode" env:"AUTH_MODE"`
	Token      string `yaml:"token" env:"TOKEN"`
	JWTSecret  string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// Address returns the backend listen address.
func (c *BackendConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	if c.AuthMode == "" {
		c.AuthMode = backend.AuthDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.When(c.Host != "", is.Host)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SQLitePath, validation.Required),
		validation.Field(&c.AuthMode, validation.Required, validation.In(backend.AuthDisabled, backend.AuthToken, backend.AuthJWT)),
	); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if c.AuthMode == backend.AuthToken && c.Token == "" {
		return fmt.Errorf("backend: auth mode is %q but token is empty", backend.AuthToken)
	}
	if c.AuthMode == backend.AuthJWT && c.JWTSecret == "" {
		return fmt.Errorf("backend: auth mode is %q but jwt_secret is empty", backend.AuthJWT)
	}
	return nil
}

// AuthOptions converts the section for the backend router.
func (c *BackendConfig) AuthOptions() backend.AuthOptions {
	return backend.AuthOptions{Mode: c.AuthMode, Token: c.Token, JWTSecret: c.JWTSecret}
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".itemdesk"
	}
	return filepath.Join(home, ".itemdesk")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8080,
			},
		},
		Remote: RemoteConfig{
			BaseURL: "http://localhost:8081",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Dir: defaultSessionDir(),
		},
		Auth: AuthConfig{
			DemoUsername: "test",
			DemoPassword: "Test@1234",
			TokenMode:    TokenModeStatic,
			StaticToken:  "demo-token",
			JWTTTL:       15 * time.Minute,
		},
		Notifications: NotificationsConfig{
			DismissAfter: 3 * time.Second,
		},
		Backend: BackendConfig{
			Host:       "127.0.0.1",
			Port:       8081,
			SQLitePath: "./itemdesk.db",
			AuthMode:   backend.AuthToken,
			Token:      "demo-token",
		},
	}
}
