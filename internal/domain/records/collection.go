package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

// LoadList returns the collection stored under key. Missing and corrupt
// values load as an empty collection; a corrupt value is logged.
func LoadList[T any](ctx context.Context, s Store, log logr.Logger, owner string, key Key) ([]T, error) {
	raw, err := s.Get(ctx, owner, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	items, err := DecodeList[T](raw)
	if err != nil {
		log.Error(err, "discarding corrupt collection", "owner", owner, "key", key)
		return []T{}, nil
	}
	return items, nil
}

// SaveList replaces the whole collection.
func SaveList[T any](ctx context.Context, s Store, owner string, key Key, items []T) error {
	data, err := EncodeList(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, owner, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Modify runs fn over the current collection inside Store.Update and writes
// back what fn returns. A corrupt current value is logged and replaced by an
// empty collection before fn sees it.
func Modify[T any](ctx context.Context, s Store, log logr.Logger, owner string, key Key, fn func([]T) ([]T, error)) error {
	err := s.Update(ctx, owner, key, func(current []byte) ([]byte, error) {
		items, err := DecodeList[T](current)
		if err != nil {
			log.Error(err, "discarding corrupt collection", "owner", owner, "key", key)
			items = []T{}
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		return EncodeList(next)
	})
	if err != nil {
		return fmt.Errorf("modify %s: %w", key, err)
	}
	return nil
}

// Append adds item to the end of the collection atomically.
func Append[T any](ctx context.Context, s Store, log logr.Logger, owner string, key Key, item T) error {
	return Modify(ctx, s, log, owner, key, func(items []T) ([]T, error) {
		return append(items, item), nil
	})
}

// Clear removes the collection. Clearing an empty collection is a no-op.
func Clear(ctx context.Context, s Store, owner string, key Key) error {
	if err := s.Delete(ctx, owner, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

// LoadObject returns the singleton stored under key, or nil when absent. A
// corrupt value is logged and removed.
func LoadObject[T any](ctx context.Context, s Store, log logr.Logger, owner string, key Key) (*T, error) {
	raw, err := s.Get(ctx, owner, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	v, err := DecodeObject[T](raw)
	if err != nil {
		log.Error(err, "removing corrupt record", "owner", owner, "key", key)
		if derr := s.Delete(ctx, owner, key); derr != nil {
			log.Error(derr, "remove corrupt record failed", "owner", owner, "key", key)
		}
		return nil, nil
	}
	return v, nil
}

// SaveObject replaces the singleton.
func SaveObject[T any](ctx context.Context, s Store, owner string, key Key, v *T) error {
	data, err := EncodeObject(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, owner, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// ModifyObject is the singleton counterpart of Modify. fn receives nil when
// nothing (or something corrupt) is stored.
func ModifyObject[T any](ctx context.Context, s Store, log logr.Logger, owner string, key Key, fn func(*T) (*T, error)) error {
	err := s.Update(ctx, owner, key, func(current []byte) ([]byte, error) {
		v, err := DecodeObject[T](current)
		if err != nil {
			log.Error(err, "discarding corrupt record", "owner", owner, "key", key)
			v = nil
		}
		next, err := fn(v)
		if err != nil {
			return nil, err
		}
		return EncodeObject(next)
	})
	if err != nil {
		return fmt.Errorf("modify %s: %w", key, err)
	}
	return nil
}
