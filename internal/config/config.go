// Package config resolves where versioned keeps its data and loads the
// user's settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the data and config directories.
const AppName = "versioned"

// DirEnv overrides the data directory when set.
const DirEnv = "VERSIONED_DIR"

// GetDataDir resolves the base directory for all storage: VERSIONED_DIR
// first, then XDG paths, finally the user's home directory.
func GetDataDir() string {
	if explicit := os.Getenv(DirEnv); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), AppName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, AppName)
}

// GetDBPath returns the path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "versioned.db")
}

// GetCacheDir returns the directory of the on-disk cache.
func GetCacheDir() string {
	return filepath.Join(GetDataDir(), "cache")
}

// GetSessionFile returns the file holding the persisted reading mode.
func GetSessionFile() string {
	return filepath.Join(GetDataDir(), "session.json")
}

// GetConfigFile returns the default location of the settings file.
func GetConfigFile() string {
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}
