// Package file stores each owner/key blob as a JSON file under a directory,
// <dir>/<owner>/<key>.json. Writes go through a temp file and a rename so a
// reader never sees a partial value.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanwahyu/canscan/internal/domain/records"
)

type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(owner string, key records.Key) (string, error) {
	if owner == "" || owner != filepath.Base(owner) || owner == "." || owner == ".." {
		return "", fmt.Errorf("invalid owner %q", owner)
	}
	return filepath.Join(s.dir, owner, string(key)+".json"), nil
}

func (s *Store) Get(ctx context.Context, owner string, key records.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(owner, key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(p)
}

func (s *Store) Put(ctx context.Context, owner string, key records.Key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(owner, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(p, value)
}

func (s *Store) Delete(ctx context.Context, owner string, key records.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(owner, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Update serialises read-modify-write cycles within this process.
func (s *Store) Update(ctx context.Context, owner string, key records.Key, fn records.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(owner, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(p)
	if errors.Is(err, records.ErrNotFound) {
		current, err = nil, nil
	}
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return s.write(p, next)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(s.dir)
	return err
}

func (s *Store) read(p string) ([]byte, error) {
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, records.ErrNotFound
	}
	return b, err
}

func (s *Store) write(p string, value []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
