package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a key changes on disk.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, key string)

// Watch starts an fsnotify watcher on the storage directory and reports key
// changes made by any process (including this one) until ctx is cancelled.
//
// A key is reported only when its content checksum differs from the last one
// seen, so rewriting identical bytes is silent. Temp files from atomic writes
// are ignored; the rename that publishes them arrives as a Create event.
func Watch(ctx context.Context, store *FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Root()); err != nil {
		return err
	}

	seen, err := snapshot(store)
	if err != nil {
		return err
	}

	logger.Info("storage watcher: started", slog.String("root", store.Root()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("storage watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != store.Root() {
				continue
			}
			key, isKey := keyFromName(filepath.Base(ev.Name))
			if !isKey {
				continue
			}

			data, readErr := os.ReadFile(ev.Name)
			if readErr != nil {
				if !errors.Is(readErr, os.ErrNotExist) {
					logger.Warn("storage watcher: read failed", slog.String("key", key), slog.String("error", readErr.Error()))
					continue
				}
				if _, known := seen[key]; known {
					delete(seen, key)
					logger.Debug("storage watcher: key removed", slog.String("key", key))
					if cb != nil {
						cb("deleted", key)
					}
				}
				continue
			}

			cs := checksum(data)
			prev, known := seen[key]
			if known && prev == cs {
				continue
			}
			seen[key] = cs

			kind := "updated"
			if !known {
				kind = "created"
			}
			logger.Debug("storage watcher: key changed", slog.String("key", key), slog.String("op", kind))
			if cb != nil {
				cb(kind, key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("storage watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// snapshot returns the current checksum of every stored key.
func snapshot(store *FS) (map[string]string, error) {
	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		data, err := store.Get(k)
		if err != nil {
			continue
		}
		out[k] = checksum(data)
	}
	return out, nil
}
