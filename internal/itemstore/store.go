package itemstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/render"
)

// Remote is the collection transport. *Client implements it.
type Remote interface {
	List(ctx context.Context) ([]models.Item, error)
	Get(ctx context.Context, id string) (models.Item, error)
	Create(ctx context.Context, d models.Draft) (models.Item, error)
	Update(ctx context.Context, id string, d models.Draft) (models.Item, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRefreshHook registers fn to run after every Refresh with the new list.
func WithRefreshHook(fn func(items []models.Item)) StoreOption {
	return func(s *Store) { s.onRefresh = fn }
}

// Store wraps a Remote with the cached list and user notifications. The cache
// only ever holds the result of the most recent Refresh.
type Store struct {
	remote    Remote
	notes     Notifier
	logger    *slog.Logger
	onRefresh func([]models.Item)

	mu    sync.RWMutex
	items []models.Item
}

// NewStore creates a store with an empty cache.
func NewStore(remote Remote, notes Notifier, logger *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		remote: remote,
		notes:  notes,
		logger: logger,
		items:  []models.Item{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Refresh replaces the cache with a fresh list. Any failure is notified and
// yields an empty list; it never returns an error.
func (s *Store) Refresh(ctx context.Context) []models.Item {
	items, err := s.remote.List(ctx)
	if err != nil {
		s.logger.Warn("list items failed", slog.String("error", err.Error()))
		s.notes.Error("Failed to load items: " + err.Error())
		items = []models.Item{}
	}
	s.replace(items)
	return s.Items()
}

// Reset empties the cache without a request.
func (s *Store) Reset() {
	s.replace([]models.Item{})
}

func (s *Store) replace(items []models.Item) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	if s.onRefresh != nil {
		s.onRefresh(s.Items())
	}
}

// Items returns a copy of the cached list.
func (s *Store) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Find looks up an item in the cache.
func (s *Store) Find(id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

// Filter matches the cache against query without modifying it.
func (s *Store) Filter(query string) []models.Item {
	return render.Filter(s.Items(), query)
}

// Get fetches one item from the collection.
func (s *Store) Get(ctx context.Context, id string) (models.Item, error) {
	it, err := s.remote.Get(ctx, id)
	if err != nil {
		s.notes.Error("Failed to load item: " + err.Error())
		return models.Item{}, err
	}
	return it, nil
}

// Create submits a draft. The cache is not touched; callers re-list.
func (s *Store) Create(ctx context.Context, d models.Draft) (models.Item, error) {
	it, err := s.remote.Create(ctx, d)
	if err != nil {
		s.notes.Error("Failed to create item: " + err.Error())
		return models.Item{}, err
	}
	s.logger.Info("item created", slog.String("id", it.ID))
	s.notes.Success("Item created successfully!")
	return it, nil
}

// Update submits a draft for an existing item.
func (s *Store) Update(ctx context.Context, id string, d models.Draft) (models.Item, error) {
	it, err := s.remote.Update(ctx, id, d)
	if err != nil {
		s.notes.Error("Failed to update item: " + err.Error())
		return models.Item{}, err
	}
	s.logger.Info("item updated", slog.String("id", id))
	s.notes.Success("Item updated successfully!")
	return it, nil
}

// Delete removes an item.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.remote.Delete(ctx, id); err != nil {
		s.notes.Error("Failed to delete item: " + err.Error())
		return err
	}
	s.logger.Info("item deleted", slog.String("id", id))
	s.notes.Success("Item deleted successfully!")
	return nil
}
