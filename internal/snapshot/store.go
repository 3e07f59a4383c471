// Package snapshot reads and writes the JSON files the client apps poll
// when the database is bypassed.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
)

var (
	// ErrInvalid is returned when a snapshot file does not hold valid JSON.
	ErrInvalid = errors.New("snapshot: invalid JSON")
	// ErrUnknown is returned for file names outside the snapshot set.
	ErrUnknown = errors.New("snapshot: unknown file")
)

var knownFiles = map[string]bool{
	UpdateFile:      true,
	GameFile:        true,
	MaintenanceFile: true,
}

// Store serves snapshot files from one directory. Reads are cached until
// the file changes on disk or is rewritten through Write.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string][]byte

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates the snapshot directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With("component", "snapshot"),
		cache:  make(map[string][]byte),
	}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Read returns the raw JSON of a snapshot file. A missing file yields an
// error matching fs.ErrNotExist; malformed content yields ErrInvalid.
func (s *Store) Read(name string) ([]byte, error) {
	if !knownFiles[name] {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}

	s.mu.RLock()
	data, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w in %s", ErrInvalid, name)
	}

	s.mu.Lock()
	s.cache[name] = data
	s.mu.Unlock()
	return data, nil
}

// Write replaces a snapshot file atomically with v rendered as indented JSON.
func (s *Store) Write(name string, v any) error {
	if !knownFiles[name] {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	err = multierr.Append(err, tmp.Close())
	if err == nil {
		err = os.Rename(tmpName, filepath.Join(s.dir, name))
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = data
	s.mu.Unlock()

	s.logger.Info("snapshot written", "file", name, "bytes", len(data))
	return nil
}

// ReadMaintenance decodes maintenance.json.
func (s *Store) ReadMaintenance() (Maintenance, error) {
	var m Maintenance
	data, err := s.Read(MaintenanceFile)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Maintenance{}, fmt.Errorf("%w in %s: %v", ErrInvalid, MaintenanceFile, err)
	}
	return m, nil
}

// Watch drops cached entries when their files change on disk, so edits made
// outside the process are picked up. It returns once the watcher is
// installed; the loop runs until ctx is done or Close is called.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("snapshot: create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		return multierr.Combine(fmt.Errorf("snapshot: watch %s: %w", s.dir, err), w.Close())
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop(ctx, w)

	s.logger.Info("watching snapshot directory", "dir", s.dir)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !knownFiles[name] {
				continue
			}
			s.invalidate(name)
			s.logger.Debug("snapshot changed on disk", "file", name, "op", event.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("snapshot watcher error", "err", err)
		}
	}
}

func (s *Store) invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// Close stops the watcher, if one was started.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	s.watcher = nil
	return err
}
