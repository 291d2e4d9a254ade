package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vault-md/versioned/internal/config"
)

func backends(t *testing.T) map[string]Cache {
	t.Helper()
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]Cache{"memory": NewMemory(), "badger": b}
}

func TestBackendsBasicOperations(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := c.Get(ctx, "missing", []byte("def"))
			require.NoError(t, err)
			assert.Equal(t, []byte("def"), got)

			require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
			has, err := c.Has(ctx, "a")
			require.NoError(t, err)
			assert.True(t, has)

			got, err = c.Get(ctx, "a", nil)
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), got)

			require.NoError(t, c.Delete(ctx, "a"))
			has, err = c.Has(ctx, "a")
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestBackendsBatchOperations(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.SetMultiple(ctx, []Item{
				{Key: "x", Value: []byte("1")},
				{Key: "y", Value: []byte("2")},
			}, time.Minute))

			items, err := c.GetMultiple(ctx, []string{"y", "nope", "x"}, []byte("-"))
			require.NoError(t, err)
			assert.Equal(t, []Item{
				{Key: "y", Value: []byte("2"), Found: true},
				{Key: "nope", Value: []byte("-")},
				{Key: "x", Value: []byte("1"), Found: true},
			}, items)

			require.NoError(t, c.DeleteMultiple(ctx, []string{"x"}))
			has, err := c.Has(ctx, "x")
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, c.Clear(ctx))
			has, err = c.Has(ctx, "y")
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestBackendsRejectEmptyKeys(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "", nil)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.ErrorIs(t, c.Set(ctx, "", nil, 0), ErrInvalidArgument)
			_, err = c.GetMultiple(ctx, []string{"ok", ""}, nil)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.ErrorIs(t, c.SetMultiple(ctx, []Item{{Key: ""}}, 0), ErrInvalidArgument)
			assert.ErrorIs(t, c.DeleteMultiple(ctx, []string{""}), ErrInvalidArgument)
		})
	}
}

func TestMemoryExpiryAndPrune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("s"), time.Second))
	require.NoError(t, m.Set(ctx, "forever", []byte("f"), 0))

	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, m.Len())
	require.NoError(t, m.Prune(ctx))
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(ctx, "short", []byte("gone"))
	require.NoError(t, err)
	assert.Equal(t, []byte("gone"), got)

	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestBadgerPersistsAndPrunes(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")

	b, err := OpenBadger(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, b.Close())

	b, err = OpenBadger(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	got, err := b.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	assert.NoError(t, b.Prune(ctx))
	require.NoError(t, b.Reset(ctx))
	has, err := b.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestOpenBadgerNeedsDir(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestOpenFromSettings(t *testing.T) {
	c, closer, err := Open(config.CacheSettings{Backend: config.CacheMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	assert.NoError(t, closer())

	c, closer, err = Open(config.CacheSettings{Backend: config.CacheBadger, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, c)
	assert.NoError(t, closer())

	_, _, err = Open(config.CacheSettings{Backend: "redis"}, nil)
	assert.Error(t, err)
}
