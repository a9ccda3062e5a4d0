// Package jsonfile stores every collection as a single JSON array file and
// rewrites the whole file on each change.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"lifeos/internal/storage"
)

// Store is a flat-file storage.Store. Files of the default owner live
// directly in the data directory; other owners get a subdirectory under
// "owners".
type Store struct {
	dir          string
	defaultOwner string
	files        map[string]string
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithFile places the default owner's copy of a collection at path instead
// of <dir>/<collection>.json.
func WithFile(c storage.Collection, path string) Option {
	return func(s *Store) {
		if path != "" {
			s.files[c.Name] = path
		}
	}
}

// WithDefaultOwner sets the owner whose files live in the data directory.
func WithDefaultOwner(owner string) Option {
	return func(s *Store) { s.defaultOwner = owner }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open creates the data directory if needed and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty data directory")
	}
	s := &Store{dir: dir, files: map[string]string{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return s, nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }

// Path returns the file backing scope.
func (s *Store) Path(scope storage.Scope) (string, error) {
	name := scope.Collection.Name + ".json"
	if scope.Owner == "" || scope.Owner == s.defaultOwner {
		if p, ok := s.files[scope.Collection.Name]; ok {
			return p, nil
		}
		return filepath.Join(s.dir, name), nil
	}
	if err := storage.ValidOwner(scope.Owner); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, "owners", scope.Owner, name), nil
}

// Load reads the collection file. A missing file is an empty collection.
func (s *Store) Load(_ context.Context, scope storage.Scope) ([]storage.Document, error) {
	path, err := s.Path(scope)
	if err != nil {
		return nil, err
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []storage.Document{}, nil
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []storage.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []storage.Document{}, nil
	}

	var docs []storage.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := docs[:0]
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// Persist rewrites the collection file from change.Snapshot. The file is
// replaced atomically under an exclusive lock.
func (s *Store) Persist(_ context.Context, scope storage.Scope, change storage.Change) error {
	if change.Snapshot == nil {
		if change.Empty() {
			return nil
		}
		return fmt.Errorf("persist %s: flat-file backend needs a snapshot", scope)
	}
	path, err := s.Path(scope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	data, err := json.MarshalIndent(change.Snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", scope, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	s.logger.Debug("collection written",
		slog.String("path", path),
		slog.Int("documents", len(change.Snapshot)))
	return nil
}
