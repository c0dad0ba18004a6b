package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/storage"
)

const accountKeyPrefix = "account:"

type account struct {
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// LocalProvider is an identity provider that accepts one configured demo pair
// plus accounts registered on this machine (bcrypt hashes in storage).
type LocalProvider struct {
	store    storage.Provider
	demoUser string
	demoHash []byte
	cost     int
}

var (
	_ Authenticator = (*LocalProvider)(nil)
	_ Registrar     = (*LocalProvider)(nil)
)

// NewLocalProvider creates a provider. An empty demoUser disables the demo pair.
func NewLocalProvider(store storage.Provider, demoUser, demoPassword string) (*LocalProvider, error) {
	return newLocalProvider(store, demoUser, demoPassword, bcrypt.DefaultCost)
}

func newLocalProvider(store storage.Provider, demoUser, demoPassword string, cost int) (*LocalProvider, error) {
	p := &LocalProvider{store: store, demoUser: demoUser, cost: cost}
	if demoUser != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cost)
		if err != nil {
			return nil, fmt.Errorf("session: hash demo password: %w", err)
		}
		p.demoHash = hash
	}
	return p, nil
}

// Authenticate implements Authenticator.
func (p *LocalProvider) Authenticate(_ context.Context, username, password string) (models.Identity, error) {
	if p.demoUser != "" && subtle.ConstantTimeCompare([]byte(username), []byte(p.demoUser)) == 1 {
		if bcrypt.CompareHashAndPassword(p.demoHash, []byte(password)) == nil {
			return models.Identity{Username: username}, nil
		}
		return models.Identity{}, apperr.Auth("invalid credentials")
	}

	acc, err := p.lookup(username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Identity{}, apperr.Auth("invalid credentials")
		}
		return models.Identity{}, err
	}
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		return models.Identity{}, apperr.Auth("invalid credentials")
	}
	return models.Identity{Username: acc.Username}, nil
}

// Register implements Registrar.
func (p *LocalProvider) Register(_ context.Context, username, password string) error {
	if username == p.demoUser && p.demoUser != "" {
		return apperr.Auth("account already exists")
	}
	if _, err := p.lookup(username); err == nil {
		return apperr.Auth("account already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("session: hash password: %w", err)
	}
	data, err := json.Marshal(account{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("session: marshal account: %w", err)
	}
	if err := p.store.Set(accountKeyPrefix+username, data); err != nil {
		return fmt.Errorf("session: store account: %w", err)
	}
	return nil
}

func (p *LocalProvider) lookup(username string) (*account, error) {
	data, err := p.store.Get(accountKeyPrefix + username)
	if err != nil {
		return nil, err
	}
	var acc account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("session: corrupt account record for %q: %w", username, err)
	}
	return &acc, nil
}
