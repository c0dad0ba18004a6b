// Package session manages the signed-in identity, its persistence in durable
// client storage, and the bearer credential presented to the item collection.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/storage"
)

// IdentityKey is the storage key holding the serialized Identity.
const IdentityKey = "current_user"

// View is the screen the user is allowed to see.
type View int

const (
	Unauthenticated View = iota
	Authenticated
)

func (v View) String() string {
	if v == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Authenticator checks a credential pair against the identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Identity, error)
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, username, password string) error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRegistrar enables SignUp. Without it sign-up is reported as unsupported.
func WithRegistrar(r Registrar) ManagerOption {
	return func(m *Manager) { m.reg = r }
}

// TokenSource produces the bearer credential for an identity.
type TokenSource interface {
	Token(ctx context.Context, id models.Identity) (string, error)
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

const msgMissingCredentials = "Please enter both username and password"

// Manager holds the current identity. It is safe for concurrent use.
type Manager struct {
	store  storage.Provider
	auth   Authenticator
	reg    Registrar
	tokens TokenSource
	notes  Notifier
	logger *slog.Logger

	mu      sync.RWMutex
	current *models.Identity
}

// NewManager creates a session manager. Call Restore before first use.
func NewManager(store storage.Provider, auth Authenticator, tokens TokenSource, notes Notifier, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		auth:   auth,
		tokens: tokens,
		notes:  notes,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func validateCredentials(username, password string) error {
	err := validation.Errors{
		"username": validation.Validate(username, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

// SignIn validates the pair, authenticates it and persists the identity.
func (m *Manager) SignIn(ctx context.Context, username, password string) (models.Identity, error) {
	if err := validateCredentials(username, password); err != nil {
		m.notes.Error(msgMissingCredentials)
		return models.Identity{}, err
	}

	id, err := m.auth.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, apperr.ErrAuth) {
			m.notes.Error("Invalid credentials")
		} else {
			m.notes.Error("Authentication failed: " + err.Error())
		}
		m.logger.Info("sign in rejected", slog.String("username", username), slog.String("error", err.Error()))
		return models.Identity{}, err
	}

	if err := m.persist(id); err != nil {
		m.notes.Error("Authentication failed: " + err.Error())
		return models.Identity{}, err
	}

	m.mu.Lock()
	m.current = &id
	m.mu.Unlock()

	m.logger.Info("signed in", slog.String("username", id.Username))
	m.notes.Success("Successfully signed in!")
	return id, nil
}

// SignUp registers a new account. It does not sign the user in.
func (m *Manager) SignUp(ctx context.Context, username, password string) error {
	if err := validateCredentials(username, password); err != nil {
		m.notes.Error(msgMissingCredentials)
		return err
	}

	if m.reg == nil {
		err := apperr.Auth("sign up is not supported by the identity provider")
		m.notes.Error("Signup failed: " + err.Error())
		return err
	}
	if err := m.reg.Register(ctx, username, password); err != nil {
		m.notes.Error("Signup failed: " + err.Error())
		return err
	}

	m.logger.Info("account created", slog.String("username", username))
	m.notes.Success("Account created successfully! Please sign in.")
	return nil
}

// SignOut clears the identity from memory and durable storage.
func (m *Manager) SignOut(_ context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Delete(IdentityKey); err != nil {
		m.notes.Error("Sign out failed: " + err.Error())
		return fmt.Errorf("session: sign out: %w", err)
	}

	m.notes.Info("Signed out successfully")
	return nil
}

// Restore loads the persisted identity. A stored identity is trusted without
// re-validation against the provider.
func (m *Manager) Restore(_ context.Context) View {
	id, ok := m.load()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !ok {
		m.current = nil
		return Unauthenticated
	}
	m.current = &id
	return Authenticated
}

// Reload re-reads durable storage after an out-of-process change and reports
// whether the signed-in identity changed.
func (m *Manager) Reload(ctx context.Context) bool {
	before := m.Current()
	m.Restore(ctx)
	after := m.Current()

	switch {
	case before == nil && after == nil:
		return false
	case before != nil && after != nil:
		return before.Username != after.Username
	default:
		return true
	}
}

// Current returns a copy of the signed-in identity, or nil.
func (m *Manager) Current() *models.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	id := *m.current
	return &id
}

// View reports which screen should be shown.
func (m *Manager) View() View {
	if m.Current() == nil {
		return Unauthenticated
	}
	return Authenticated
}

// Token returns the bearer credential for the signed-in identity.
func (m *Manager) Token(ctx context.Context) (string, error) {
	id := m.Current()
	if id == nil {
		return "", apperr.Auth("not signed in")
	}
	return m.tokens.Token(ctx, *id)
}

func (m *Manager) persist(id models.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("session: marshal identity: %w", err)
	}
	if err := m.store.Set(IdentityKey, data); err != nil {
		return fmt.Errorf("session: persist identity: %w", err)
	}
	return nil
}

// load reads the stored identity. Unreadable or empty records are removed.
func (m *Manager) load() (models.Identity, bool) {
	data, err := m.store.Get(IdentityKey)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			m.logger.Warn("session: read identity failed", slog.String("error", err.Error()))
		}
		return models.Identity{}, false
	}

	var id models.Identity
	if err := json.Unmarshal(data, &id); err != nil || id.Username == "" {
		m.logger.Warn("session: discarding corrupt identity record")
		_ = m.store.Delete(IdentityKey)
		return models.Identity{}, false
	}
	return id, true
}
