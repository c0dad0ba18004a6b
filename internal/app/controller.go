// Package app owns the session, the item store and the form state, and
// implements the user flows every surface (web, CLI, MCP) drives.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/itemstore"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/notify"
	"github.com/starford/itemdesk/internal/render"
	"github.com/starford/itemdesk/internal/session"
	"github.com/starford/itemdesk/internal/sse"
)

// Notifier is what the controller needs from the notification layer.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
	Current() (notify.Notification, bool)
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher broadcasts session changes.
func WithPublisher(p notify.Publisher) Option {
	return func(c *Controller) { c.pub = p }
}

// Controller is the application state. It is safe for concurrent use;
// overlapping refreshes are last-write-wins.
type Controller struct {
	session *session.Manager
	store   *itemstore.Store
	notes   Notifier
	logger  *slog.Logger
	pub     notify.Publisher

	mu       sync.Mutex
	formOpen bool
	form     render.FormState
}

// New creates a controller. Call Start before serving.
func New(sess *session.Manager, store *itemstore.Store, notes Notifier, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		session: sess,
		store:   store,
		notes:   notes,
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start restores the persisted session and, when signed in, loads the list.
func (c *Controller) Start(ctx context.Context) session.View {
	view := c.session.Restore(ctx)
	if view == session.Authenticated {
		c.store.Refresh(ctx)
	}
	c.logger.Info("session restored", slog.String("view", view.String()))
	return view
}

// View reports which screen to show.
func (c *Controller) View() session.View {
	return c.session.View()
}

// Current returns the signed-in identity, or nil.
func (c *Controller) Current() *models.Identity {
	return c.session.Current()
}

// Notification returns the visible notification, if any.
func (c *Controller) Notification() (notify.Notification, bool) {
	return c.notes.Current()
}

// SignIn authenticates and loads the list.
func (c *Controller) SignIn(ctx context.Context, username, password string) error {
	if _, err := c.session.SignIn(ctx, username, password); err != nil {
		return err
	}
	c.store.Refresh(ctx)
	c.publishSession()
	return nil
}

// SignUp registers an account without signing in.
func (c *Controller) SignUp(ctx context.Context, username, password string) error {
	return c.session.SignUp(ctx, username, password)
}

// SignOut clears the identity, the cache and the form.
func (c *Controller) SignOut(ctx context.Context) error {
	err := c.session.SignOut(ctx)
	c.store.Reset()
	c.CancelForm()
	c.publishSession()
	return err
}

// SessionChanged re-reads the persisted session after another process
// changed it, and reloads or clears the list to match.
func (c *Controller) SessionChanged(ctx context.Context) {
	if !c.session.Reload(ctx) {
		return
	}
	if c.session.View() == session.Authenticated {
		c.store.Refresh(ctx)
	} else {
		c.store.Reset()
		c.CancelForm()
	}
	c.logger.Info("session changed externally", slog.String("view", c.session.View().String()))
	c.publishSession()
}

func (c *Controller) publishSession() {
	if c.pub != nil {
		c.pub.Publish(sse.Event{Type: sse.EventSessionChanged, Data: map[string]string{"view": c.session.View().String()}})
	}
}

func (c *Controller) requireAuth() error {
	if c.session.View() != session.Authenticated {
		return apperr.Auth("sign in required")
	}
	return nil
}

// Refresh re-lists the collection.
func (c *Controller) Refresh(ctx context.Context) ([]models.Item, error) {
	if err := c.requireAuth(); err != nil {
		c.store.Reset()
		return nil, err
	}
	return c.store.Refresh(ctx), nil
}

// Items returns the cached list.
func (c *Controller) Items() []models.Item {
	return c.store.Items()
}

// Search filters the cached list without modifying it.
func (c *Controller) Search(query string) []models.Item {
	return c.store.Filter(query)
}

// Get fetches one item from the collection.
func (c *Controller) Get(ctx context.Context, id string) (models.Item, error) {
	if err := c.requireAuth(); err != nil {
		return models.Item{}, err
	}
	return c.store.Get(ctx, id)
}

// Create submits a new item, then re-lists.
func (c *Controller) Create(ctx context.Context, d models.Draft) (models.Item, error) {
	if err := c.requireAuth(); err != nil {
		return models.Item{}, err
	}
	it, err := c.store.Create(ctx, d)
	c.store.Refresh(ctx)
	return it, err
}

// Update submits a draft for an existing item, then re-lists.
func (c *Controller) Update(ctx context.Context, id string, d models.Draft) (models.Item, error) {
	if err := c.requireAuth(); err != nil {
		return models.Item{}, err
	}
	it, err := c.store.Update(ctx, id, d)
	c.store.Refresh(ctx)
	return it, err
}

// SubmitForm routes to Update when the form carries an id, else Create.
// Whatever the outcome the form is closed and the list reloaded.
func (c *Controller) SubmitForm(ctx context.Context, form render.FormState) (models.Item, error) {
	if err := c.requireAuth(); err != nil {
		return models.Item{}, err
	}

	var (
		it  models.Item
		err error
	)
	if form.IsEdit() {
		it, err = c.store.Update(ctx, form.ID, form.Draft())
	} else {
		it, err = c.store.Create(ctx, form.Draft())
	}
	if err != nil {
		c.logger.Error("form submission failed", slog.String("id", form.ID), slog.String("error", err.Error()))
	}

	c.CancelForm()
	c.store.Refresh(ctx)
	return it, err
}

// Delete removes an item and re-lists when it succeeded.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Error("delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}
	c.store.Refresh(ctx)
	return nil
}

// OpenCreate shows an empty form.
func (c *Controller) OpenCreate() error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	c.mu.Lock()
	c.formOpen = true
	c.form = render.FormState{}
	c.mu.Unlock()
	return nil
}

// Edit shows the form prefilled from the cached item.
func (c *Controller) Edit(id string) (render.FormState, error) {
	if err := c.requireAuth(); err != nil {
		return render.FormState{}, err
	}
	it, ok := c.store.Find(id)
	if !ok {
		c.notes.Error("Item not found")
		return render.FormState{}, apperr.ErrNotFound
	}
	form := render.FormFromItem(it)
	c.mu.Lock()
	c.formOpen = true
	c.form = form
	c.mu.Unlock()
	return form, nil
}

// CancelForm hides and resets the form.
func (c *Controller) CancelForm() {
	c.mu.Lock()
	c.formOpen = false
	c.form = render.FormState{}
	c.mu.Unlock()
}

// Form returns the form contents and whether it is shown.
func (c *Controller) Form() (render.FormState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form, c.formOpen
}
