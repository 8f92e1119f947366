// Package memory is an in-process record store. It is the default for
// development and is what the tests run against.
package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/canscan/internal/domain/records"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewStore() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func blobKey(owner string, key records.Key) string {
	return owner + "/" + string(key)
}

func (s *Store) Get(ctx context.Context, owner string, key records.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.blobs[blobKey(owner, key)]
	if !ok {
		return nil, records.ErrNotFound
	}
	return clone(v), nil
}

func (s *Store) Put(ctx context.Context, owner string, key records.Key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[blobKey(owner, key)] = clone(value)
	return nil
}

func (s *Store) Delete(ctx context.Context, owner string, key records.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, blobKey(owner, key))
	return nil
}

// Update holds the write lock across fn, so concurrent updates serialise.
func (s *Store) Update(ctx context.Context, owner string, key records.Key, fn records.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := blobKey(owner, key)
	current, ok := s.blobs[k]
	if !ok {
		current = nil
	}
	next, err := fn(clone(current))
	if err != nil {
		return err
	}
	s.blobs[k] = clone(next)
	return nil
}

// Ping always succeeds; it lets the store sit behind a health check.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
