package cache

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vault-md/versioned/internal/config"
)

// Open builds the backend named in settings. The returned closer releases
// it and is never nil.
func Open(settings config.CacheSettings, logger *logrus.Entry) (Cache, func() error, error) {
	switch settings.Backend {
	case config.CacheMemory, "":
		return NewMemory(), func() error { return nil }, nil
	case config.CacheBadger:
		b, err := OpenBadger(BadgerConfig{Dir: settings.Dir, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("cache: unknown backend %q", settings.Backend)
	}
}
