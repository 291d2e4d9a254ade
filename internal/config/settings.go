package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/vault-md/versioned/internal/readingmode"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
)

// Settings is the loaded configuration.
type Settings struct {
	ReadingMode string        `mapstructure:"reading_mode" validate:"required"`
	DBPath      string        `mapstructure:"db_path"`
	LogLevel    string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error fatal"`
	Cache       CacheSettings `mapstructure:"cache"`
	HTTP        HTTPSettings  `mapstructure:"http"`
}

type CacheSettings struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory badger"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type HTTPSettings struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

var settingsValidate = validator.New()

// Load reads settings from path, or from the default config file when path
// is empty and that file exists. VERSIONED_* environment variables override
// file values, e.g. VERSIONED_CACHE_BACKEND.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("reading_mode", readingmode.DefaultMode)
	v.SetDefault("db_path", GetDBPath())
	v.SetDefault("log_level", "info")
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.dir", GetCacheDir())
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("http.addr", "127.0.0.1:8080")

	v.SetEnvPrefix("VERSIONED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if _, err := os.Stat(GetConfigFile()); err == nil {
		v.SetConfigFile(GetConfigFile())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", GetConfigFile(), err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	s.LogLevel = strings.ToLower(s.LogLevel)
	s.Cache.Backend = strings.ToLower(s.Cache.Backend)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints and the reading mode grammar.
func (s *Settings) Validate() error {
	if err := settingsValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: %v does not satisfy %s", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := readingmode.Parse(s.ReadingMode); err != nil {
		return fmt.Errorf("invalid config reading_mode: %w", err)
	}
	return nil
}
