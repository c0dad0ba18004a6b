// Package testutil provides shared test helpers for setting up client storage
// and a reference item collection.
package testutil

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/starford/itemdesk/internal/backend"
	"github.com/starford/itemdesk/internal/storage"
)

// BackendToken is the bearer credential TestBackend accepts.
const BackendToken = "demo-token"

// TestDB creates a temporary SQLite item table that is automatically cleaned up.
func TestDB(t *testing.T) *backend.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "itemdesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := backend.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBackend serves a fresh item collection requiring BackendToken.
func TestBackend(t *testing.T) *httptest.Server {
	t.Helper()
	db := TestDB(t)
	srv := httptest.NewServer(backend.NewRouter(db, backend.AuthOptions{
		Mode:  backend.AuthToken,
		Token: BackendToken,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestStore creates a temporary client storage directory.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
