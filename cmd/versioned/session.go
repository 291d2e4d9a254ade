package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/vault-md/versioned/internal/logging"
)

// fileSession keeps session values in a JSON file between invocations. Write
// failures are logged and kept in err.
type fileSession struct {
	path string
	err  error
}

func newFileSession(path string) *fileSession {
	return &fileSession{path: path}
}

func (s *fileSession) load() map[string]string {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.For("session").WithError(err).Warn("ignoring unreadable session file")
		}
		return values
	}
	if err := json.Unmarshal(data, &values); err != nil {
		logging.For("session").WithError(err).Warn("ignoring malformed session file")
		return map[string]string{}
	}
	return values
}

func (s *fileSession) save(values map[string]string) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		s.fail(err)
		return
	}
	data, err := json.Marshal(values)
	if err != nil {
		s.fail(err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.fail(err)
	}
}

func (s *fileSession) fail(err error) {
	logging.For("session").WithError(err).Warn("session write failed")
	s.err = err
}

func (s *fileSession) Get(key string) (string, bool) {
	v, ok := s.load()[key]
	return v, ok
}

func (s *fileSession) Set(key, value string) {
	values := s.load()
	values[key] = value
	s.save(values)
}

func (s *fileSession) Delete(key string) {
	values := s.load()
	if _, ok := values[key]; !ok {
		return
	}
	delete(values, key)
	s.save(values)
}
