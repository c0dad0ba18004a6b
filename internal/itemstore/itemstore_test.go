package itemstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/testutil"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

type failingTokens struct{}

func (failingTokens) Token(context.Context) (string, error) { return "", apperr.Auth("not signed in") }

type recorder struct {
	mu    sync.Mutex
	notes []string
}

func (r *recorder) Success(msg string) { r.add("success: " + msg) }
func (r *recorder) Error(msg string)   { r.add("error: " + msg) }

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.notes = append(r.notes, s)
	r.mu.Unlock()
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return ""
	}
	return r.notes[len(r.notes)-1]
}

func newClient(t *testing.T) *Client {
	t.Helper()
	srv := testutil.TestBackend(t)
	return NewClient(srv.URL, 5*time.Second, staticTokens(testutil.BackendToken))
}

func TestClient_CRUD(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	items, err := c.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	created, err := c.Create(ctx, models.Draft{Name: "Widget", Description: "d", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, []string{"a"}, created.Tags)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.Update(ctx, created.ID, models.Draft{Name: "Widget 2", Description: "d2", Category: "c"})
	require.NoError(t, err)
	assert.Equal(t, "Widget 2", updated.Name)
	assert.Equal(t, "c", updated.Category)

	res, err := c.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, res.DeletedItemID)

	_, err = c.Get(ctx, created.ID)
	var reqErr *apperr.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.ErrorIs(t, err, apperr.ErrRequest)
	assert.Equal(t, "HTTP error! status: 404", err.Error())
}

func TestClient_SendsBearer(t *testing.T) {
	srv := testutil.TestBackend(t)
	c := NewClient(srv.URL, 0, staticTokens("wrong"))
	_, err := c.List(context.Background())

	var reqErr *apperr.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
}

func TestClient_TokenFailureNeverSends(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { hits++ }))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, failingTokens{}).List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrRequest)
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Zero(t, hits)
}

func TestClient_BareItemResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/items/a%2Fb", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"a/b","name":"n","description":"d","created_at":"2024-01-02T03:04:05.123456","updated_at":""}`))
	}))
	defer srv.Close()

	it, err := NewClient(srv.URL, 0, staticTokens("tok")).Update(context.Background(), "a/b", models.Draft{Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, "a/b", it.ID)
	assert.Equal(t, 2024, it.CreatedAt.Year())
	assert.True(t, it.UpdatedAt.IsZero())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second, staticTokens("t")).List(context.Background())
	var reqErr *apperr.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.Status)
}

// fakeRemote records calls and fails on demand.
type fakeRemote struct {
	items   []models.Item
	fail    error
	deleted []string
}

func (f *fakeRemote) List(context.Context) ([]models.Item, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]models.Item(nil), f.items...), nil
}

func (f *fakeRemote) Get(_ context.Context, id string) (models.Item, error) {
	if f.fail != nil {
		return models.Item{}, f.fail
	}
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.Item{}, &apperr.RequestError{Op: "get", Status: http.StatusNotFound}
}

func (f *fakeRemote) Create(_ context.Context, d models.Draft) (models.Item, error) {
	if f.fail != nil {
		return models.Item{}, f.fail
	}
	it := models.Item{ID: "new", Name: d.Name, Description: d.Description}
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, d models.Draft) (models.Item, error) {
	if f.fail != nil {
		return models.Item{}, f.fail
	}
	return models.Item{ID: id, Name: d.Name}, nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) (DeleteResult, error) {
	if f.fail != nil {
		return DeleteResult{}, f.fail
	}
	f.deleted = append(f.deleted, id)
	return DeleteResult{DeletedItemID: id}, nil
}

func TestStore_RefreshDegradesToEmpty(t *testing.T) {
	remote := &fakeRemote{items: []models.Item{{ID: "1", Name: "a"}}}
	notes := &recorder{}
	var hooked []int
	s := NewStore(remote, notes, testutil.Logger(), WithRefreshHook(func(items []models.Item) {
		hooked = append(hooked, len(items))
	}))
	ctx := context.Background()

	assert.Len(t, s.Refresh(ctx), 1)
	_, ok := s.Find("1")
	assert.True(t, ok)

	remote.fail = &apperr.RequestError{Op: "list", Status: http.StatusInternalServerError}
	items := s.Refresh(ctx)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, s.Items())
	assert.Equal(t, "error: Failed to load items: HTTP error! status: 500", notes.last())
	assert.Equal(t, []int{1, 0}, hooked)
}

func TestStore_MutationsNotifyAndPropagate(t *testing.T) {
	remote := &fakeRemote{}
	notes := &recorder{}
	s := NewStore(remote, notes, testutil.Logger())
	ctx := context.Background()

	_, err := s.Create(ctx, models.Draft{Name: "n", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "success: Item created successfully!", notes.last())
	assert.Empty(t, s.Items(), "create must not patch the cache")

	require.NoError(t, s.Delete(ctx, "new"))
	assert.Equal(t, "success: Item deleted successfully!", notes.last())

	remote.fail = &apperr.RequestError{Op: "create", Status: http.StatusBadRequest}
	_, err = s.Create(ctx, models.Draft{})
	assert.ErrorIs(t, err, apperr.ErrRequest)
	assert.Equal(t, "error: Failed to create item: HTTP error! status: 400", notes.last())

	_, err = s.Update(ctx, "x", models.Draft{})
	assert.Error(t, err)
	assert.Equal(t, "error: Failed to update item: HTTP error! status: 400", notes.last())

	assert.Error(t, s.Delete(ctx, "x"))
	assert.Equal(t, "error: Failed to delete item: HTTP error! status: 400", notes.last())

	_, err = s.Get(ctx, "x")
	assert.Error(t, err)
	assert.Equal(t, "error: Failed to load item: HTTP error! status: 400", notes.last())
}

func TestStore_FilterLeavesCache(t *testing.T) {
	remote := &fakeRemote{items: []models.Item{
		{ID: "1", Name: "Widget"},
		{ID: "2", Name: "Gadget"},
	}}
	s := NewStore(remote, &recorder{}, testutil.Logger())
	s.Refresh(context.Background())

	got := s.Filter("WIDGET")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Len(t, s.Items(), 2)

	s.Reset()
	assert.Empty(t, s.Items())
}
