package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerConfig configures the on-disk cache.
type BadgerConfig struct {
	// Dir holds the badger files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// Logger receives badger's own logging; nil silences it.
	Logger *logrus.Entry
	// GCDiscardRatio is passed to value log GC on Prune.
	GCDiscardRatio float64
}

// Badger is a Cache over a badger key-value store.
type Badger struct {
	db    *badger.DB
	ratio float64
}

// OpenBadger opens or creates the store described by cfg.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("cache: dir is required for a persistent badger cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	ratio := cfg.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &Badger{db: db, ratio: ratio}, nil
}

// Close releases the store.
func (b *Badger) Close() error {
	return b.db.Close()
}

func newEntry(key string, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

func (b *Badger) Get(ctx context.Context, key string, def []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	items, err := b.GetMultiple(ctx, []string{key}, def)
	if err != nil {
		return nil, err
	}
	return items[0].Value, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(key, value, ttl))
	})
}

func (b *Badger) Has(_ context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (b *Badger) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *Badger) GetMultiple(_ context.Context, keys []string, def []byte) ([]Item, error) {
	if err := checkKeys(keys); err != nil {
		return nil, err
	}
	items := make([]Item, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for i, k := range keys {
			items[i] = Item{Key: k, Value: def}
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			items[i].Value = value
			items[i].Found = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (b *Badger) SetMultiple(_ context.Context, items []Item, ttl time.Duration) error {
	for _, it := range items {
		if err := checkKey(it.Key); err != nil {
			return err
		}
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, it := range items {
		if err := wb.SetEntry(newEntry(it.Key, it.Value, ttl)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) DeleteMultiple(_ context.Context, keys []string) error {
	if err := checkKeys(keys); err != nil {
		return err
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete([]byte(k)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) Clear(_ context.Context) error {
	return b.db.DropAll()
}

// Prune reclaims value log space held by expired and deleted entries.
// Expired entries are already invisible to reads.
func (b *Badger) Prune(_ context.Context) error {
	for {
		err := b.db.RunValueLogGC(b.ratio)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		return err
	}
}

// Reset drops every key and reclaims space.
func (b *Badger) Reset(ctx context.Context) error {
	if err := b.db.DropAll(); err != nil {
		return err
	}
	return b.Prune(ctx)
}
