package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/vault-md/versioned/internal/readingmode"
)

// SegmentKey appends the hash of mode to key, so that entries written under
// one reading mode are never read under another. An empty mode leaves the
// key unchanged.
func SegmentKey(key, mode string) string {
	if mode == "" {
		return key
	}
	sum := sha256.Sum256([]byte(mode))
	return key + "_" + hex.EncodeToString(sum[:])
}

// Segmented wraps a Cache and rewrites every key with the effective reading
// mode of the request context. A context without a State is unsegmented.
type Segmented struct {
	inner   Cache
	metrics *Metrics
}

// NewSegmented wraps inner. metrics may be nil.
func NewSegmented(inner Cache, metrics *Metrics) *Segmented {
	return &Segmented{inner: inner, metrics: metrics}
}

// Inner returns the wrapped cache.
func (s *Segmented) Inner() Cache {
	return s.inner
}

func (s *Segmented) key(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return SegmentKey(key, readingmode.Active(ctx)), nil
}

func (s *Segmented) keys(ctx context.Context, keys []string) ([]string, error) {
	if err := checkKeys(keys); err != nil {
		return nil, err
	}
	mode := readingmode.Active(ctx)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = SegmentKey(k, mode)
	}
	return out, nil
}

func (s *Segmented) Get(ctx context.Context, key string, def []byte) ([]byte, error) {
	items, err := s.GetMultiple(ctx, []string{key}, def)
	if err != nil {
		return nil, err
	}
	return items[0].Value, nil
}

func (s *Segmented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k, err := s.key(ctx, key)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, k, value, ttl)
}

func (s *Segmented) Has(ctx context.Context, key string) (bool, error) {
	k, err := s.key(ctx, key)
	if err != nil {
		return false, err
	}
	return s.inner.Has(ctx, k)
}

func (s *Segmented) Delete(ctx context.Context, key string) error {
	k, err := s.key(ctx, key)
	if err != nil {
		return err
	}
	return s.inner.Delete(ctx, k)
}

// GetMultiple returns the items keyed by the caller's keys, in their order.
func (s *Segmented) GetMultiple(ctx context.Context, keys []string, def []byte) ([]Item, error) {
	segmented, err := s.keys(ctx, keys)
	if err != nil {
		return nil, err
	}
	found, err := s.inner.GetMultiple(ctx, segmented, def)
	if err != nil {
		return nil, err
	}

	// backends may omit missing keys, so results are matched by key
	byKey := make(map[string]Item, len(found))
	for _, it := range found {
		if it.Found {
			byKey[it.Key] = it
		}
	}

	label := SegmentLabel(readingmode.Active(ctx))
	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{Key: k, Value: def}
		if it, ok := byKey[segmented[i]]; ok {
			items[i].Value = it.Value
			items[i].Found = true
		}
		s.metrics.record(label, items[i].Found)
	}
	return items, nil
}

func (s *Segmented) SetMultiple(ctx context.Context, items []Item, ttl time.Duration) error {
	mode := readingmode.Active(ctx)
	out := make([]Item, len(items))
	for i, it := range items {
		if err := checkKey(it.Key); err != nil {
			return err
		}
		out[i] = Item{Key: SegmentKey(it.Key, mode), Value: it.Value}
	}
	return s.inner.SetMultiple(ctx, out, ttl)
}

func (s *Segmented) DeleteMultiple(ctx context.Context, keys []string) error {
	segmented, err := s.keys(ctx, keys)
	if err != nil {
		return err
	}
	return s.inner.DeleteMultiple(ctx, segmented)
}

// Clear empties the whole backend, every segment included.
func (s *Segmented) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

// Prune passes through when the backend supports it.
func (s *Segmented) Prune(ctx context.Context) error {
	if p, ok := s.inner.(Pruner); ok {
		return p.Prune(ctx)
	}
	return nil
}

// Reset passes through when the backend supports it.
func (s *Segmented) Reset(ctx context.Context) error {
	if r, ok := s.inner.(Resetter); ok {
		return r.Reset(ctx)
	}
	return nil
}
