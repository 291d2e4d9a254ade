// Package cache stores opaque byte values under string keys, and segments
// keys by the reading mode active in the request.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidArgument is returned for empty keys.
var ErrInvalidArgument = errors.New("cache: invalid argument")

// Item is one key of a batch operation. Found is only set by GetMultiple.
type Item struct {
	Key   string
	Value []byte
	Found bool
}

// Cache is the backend contract. A ttl of 0 means no expiry.
type Cache interface {
	Get(ctx context.Context, key string, def []byte) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// GetMultiple returns one item per key, in the order of keys. Missing
	// keys carry def and Found false.
	GetMultiple(ctx context.Context, keys []string, def []byte) ([]Item, error)
	SetMultiple(ctx context.Context, items []Item, ttl time.Duration) error
	DeleteMultiple(ctx context.Context, keys []string) error
	Clear(ctx context.Context) error
}

// Pruner is implemented by backends that can drop expired entries on demand.
type Pruner interface {
	Prune(ctx context.Context) error
}

// Resetter is implemented by backends that can drop all state, including
// anything Clear keeps.
type Resetter interface {
	Reset(ctx context.Context) error
}

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidArgument
	}
	return nil
}

func checkKeys(keys []string) error {
	for _, k := range keys {
		if err := checkKey(k); err != nil {
			return err
		}
	}
	return nil
}
