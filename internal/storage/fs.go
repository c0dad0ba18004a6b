package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/itemdesk/internal/apperr"
)

const tmpPrefix = ".itemdesk-tmp-"

// FS implements Provider with one file per key inside a directory.
type FS struct {
	root string // absolute path to the storage directory
}

// NewFS creates a new FS provider rooted at the given directory,
// creating it (owner-only) when missing.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute storage directory.
func (f *FS) Root() string {
	return f.root
}

// fileName maps a key to a single escaped path element.
func fileName(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage: empty key")
	}
	name := url.QueryEscape(key)
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("storage: invalid key: %q", key)
	}
	return name, nil
}

// keyFromName is the inverse of fileName. ok is false for files that are not keys.
func keyFromName(name string) (string, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	key, err := url.QueryUnescape(name)
	if err != nil {
		return "", false
	}
	return key, true
}

// safePath resolves a key against the root and rejects any result that
// escapes it.
func (f *FS) safePath(key string) (string, error) {
	name, err := fileName(key)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(f.root, name)
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: key escapes root: %q", key)
	}
	return abs, nil
}

// Get returns the raw bytes stored under key.
func (f *FS) Get(key string) ([]byte, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: get %s: %w", key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return data, nil
}

// Set atomically writes value: tmp file → fsync → rename.
func (f *FS) Set(key string, value []byte) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes key.
func (f *FS) Delete(key string) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (f *FS) Keys() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := keyFromName(e.Name()); ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
