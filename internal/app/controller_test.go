package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/itemstore"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/notify"
	"github.com/starford/itemdesk/internal/render"
	"github.com/starford/itemdesk/internal/session"
	"github.com/starford/itemdesk/internal/sse"
	"github.com/starford/itemdesk/internal/storage"
	"github.com/starford/itemdesk/internal/testutil"
)

type events struct {
	mu  sync.Mutex
	all []sse.Event
}

func (e *events) Publish(ev sse.Event) {
	e.mu.Lock()
	e.all = append(e.all, ev)
	e.mu.Unlock()
}

func (e *events) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.all))
	for _, ev := range e.all {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	ctl    *Controller
	notes  *notify.Notifier
	events *events
}

func newHarness(t *testing.T, baseURL string, store storage.Provider) *harness {
	t.Helper()
	logger := testutil.Logger()
	ev := &events{}
	notes := notify.New(time.Minute, notify.WithLogger(logger))

	provider, err := session.NewLocalProvider(store, "test", "Test@1234")
	require.NoError(t, err)
	sess := session.NewManager(store, provider, session.StaticToken(testutil.BackendToken), notes, logger, session.WithRegistrar(provider))
	client := itemstore.NewClient(baseURL, 5*time.Second, sess)
	items := itemstore.NewStore(client, notes, logger)

	return &harness{
		ctl:    New(sess, items, notes, logger, WithPublisher(ev)),
		notes:  notes,
		events: ev,
	}
}

func signedIn(t *testing.T) *harness {
	t.Helper()
	srv := testutil.TestBackend(t)
	_, store := testutil.TestStore(t)
	h := newHarness(t, srv.URL, store)
	require.NoError(t, h.ctl.SignIn(context.Background(), "test", "Test@1234"))
	return h
}

func (h *harness) banner(t *testing.T) string {
	t.Helper()
	n, ok := h.notes.Current()
	require.True(t, ok, "expected a visible notification")
	return n.Message
}

func TestStart_Unauthenticated(t *testing.T) {
	_, store := testutil.TestStore(t)
	// No server behind this URL: Start must not issue a request.
	h := newHarness(t, "http://127.0.0.1:1", store)

	assert.Equal(t, session.Unauthenticated, h.ctl.Start(context.Background()))
	assert.Empty(t, h.ctl.Items())
	_, ok := h.notes.Current()
	assert.False(t, ok)
}

func TestStart_RestoresSessionAndLoads(t *testing.T) {
	srv := testutil.TestBackend(t)
	_, store := testutil.TestStore(t)
	ctx := context.Background()

	first := newHarness(t, srv.URL, store)
	require.NoError(t, first.ctl.SignIn(ctx, "test", "Test@1234"))
	_, err := first.ctl.Create(ctx, models.Draft{Name: "Persisted", Description: "d"})
	require.NoError(t, err)

	second := newHarness(t, srv.URL, store)
	assert.Equal(t, session.Authenticated, second.ctl.Start(ctx))
	require.Len(t, second.ctl.Items(), 1)
	assert.Equal(t, "Persisted", second.ctl.Items()[0].Name)
}

func TestSubmitForm_CreateClosesFormAndRelists(t *testing.T) {
	h := signedIn(t)
	ctx := context.Background()

	require.NoError(t, h.ctl.OpenCreate())
	_, open := h.ctl.Form()
	require.True(t, open)

	it, err := h.ctl.SubmitForm(ctx, render.FormState{Name: "Widget", Description: "d", Tags: "a, ,b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, it.Tags)

	_, open = h.ctl.Form()
	assert.False(t, open, "form must be hidden after submit")
	items := h.ctl.Items()
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)
	assert.Equal(t, "Item created successfully!", h.banner(t))
}

func TestSubmitForm_UpdateFailureStillClosesAndRelists(t *testing.T) {
	h := signedIn(t)
	ctx := context.Background()
	_, err := h.ctl.Create(ctx, models.Draft{Name: "Keep", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, h.ctl.OpenCreate())
	_, err = h.ctl.SubmitForm(ctx, render.FormState{ID: "missing", Name: "x", Description: "y"})
	assert.ErrorIs(t, err, apperr.ErrRequest)

	_, open := h.ctl.Form()
	assert.False(t, open)
	assert.Len(t, h.ctl.Items(), 1)
}

func TestEdit(t *testing.T) {
	h := signedIn(t)
	ctx := context.Background()
	created, err := h.ctl.Create(ctx, models.Draft{Name: "n", Description: "d", Category: "c", Tags: []string{"x", "y"}})
	require.NoError(t, err)

	form, err := h.ctl.Edit(created.ID)
	require.NoError(t, err)
	assert.Equal(t, render.FormState{ID: created.ID, Name: "n", Description: "d", Category: "c", Tags: "x, y"}, form)
	shown, open := h.ctl.Form()
	assert.True(t, open)
	assert.Equal(t, form, shown)

	_, err = h.ctl.Edit("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Item not found", h.banner(t))

	h.ctl.CancelForm()
	_, open = h.ctl.Form()
	assert.False(t, open)
}

func TestDelete_RemovesFromNextList(t *testing.T) {
	h := signedIn(t)
	ctx := context.Background()
	a, err := h.ctl.Create(ctx, models.Draft{Name: "a", Description: "d"})
	require.NoError(t, err)
	b, err := h.ctl.Create(ctx, models.Draft{Name: "b", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, h.ctl.Delete(ctx, a.ID))
	items := h.ctl.Items()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	assert.ErrorIs(t, h.ctl.Delete(ctx, a.ID), apperr.ErrRequest)
	assert.Equal(t, "Failed to delete item: HTTP error! status: 404", h.banner(t))
}

func TestSearch(t *testing.T) {
	h := signedIn(t)
	ctx := context.Background()
	for _, name := range []string{"Widget", "Gadget"} {
		_, err := h.ctl.Create(ctx, models.Draft{Name: name, Description: "d"})
		require.NoError(t, err)
	}

	got := h.ctl.Search("WIDGET")
	require.Len(t, got, 1)
	assert.Equal(t, "Widget", got[0].Name)
	assert.Len(t, h.ctl.Search(""), 2)
	assert.Len(t, h.ctl.Items(), 2)
}

func TestGuards_RequireSignIn(t *testing.T) {
	_, store := testutil.TestStore(t)
	h := newHarness(t, "http://127.0.0.1:1", store)
	ctx := context.Background()

	_, err := h.ctl.Create(ctx, models.Draft{Name: "n", Description: "d"})
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, err = h.ctl.SubmitForm(ctx, render.FormState{Name: "n"})
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.ErrorIs(t, h.ctl.Delete(ctx, "x"), apperr.ErrAuth)
	assert.ErrorIs(t, h.ctl.OpenCreate(), apperr.ErrAuth)
	_, err = h.ctl.Refresh(ctx)
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestSignOut_ClearsState(t *testing.T) {
	h := signedIn(t)
	ctx := context.Background()
	_, err := h.ctl.Create(ctx, models.Draft{Name: "n", Description: "d"})
	require.NoError(t, err)
	require.NoError(t, h.ctl.OpenCreate())

	require.NoError(t, h.ctl.SignOut(ctx))
	assert.Equal(t, session.Unauthenticated, h.ctl.View())
	assert.Empty(t, h.ctl.Items())
	_, open := h.ctl.Form()
	assert.False(t, open)
	assert.Contains(t, h.events.types(), sse.EventSessionChanged)
}

func TestSessionChanged_FollowsOtherProcess(t *testing.T) {
	srv := testutil.TestBackend(t)
	_, store := testutil.TestStore(t)
	ctx := context.Background()

	web := newHarness(t, srv.URL, store)
	web.ctl.Start(ctx)
	cli := newHarness(t, srv.URL, store)
	require.NoError(t, cli.ctl.SignIn(ctx, "test", "Test@1234"))
	_, err := cli.ctl.Create(ctx, models.Draft{Name: "from cli", Description: "d"})
	require.NoError(t, err)

	web.ctl.SessionChanged(ctx)
	assert.Equal(t, session.Authenticated, web.ctl.View())
	assert.Len(t, web.ctl.Items(), 1)
	assert.Equal(t, []string{sse.EventSessionChanged}, web.events.types())

	require.NoError(t, cli.ctl.SignOut(ctx))
	web.ctl.SessionChanged(ctx)
	assert.Equal(t, session.Unauthenticated, web.ctl.View())
	assert.Empty(t, web.ctl.Items())

	web.ctl.SessionChanged(ctx)
	assert.Len(t, web.events.types(), 2, "no event without a change")
}
