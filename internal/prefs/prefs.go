package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"codeberg.org/mutker/telemetry/errors"
)

const (
	prefsFile = "prefs.json"

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o600
)

// Store persists small key/value state that must survive process restarts
// (ping sequence numbers, session counts, the client id) as a single JSON
// file inside the data directory.
type Store struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

var (
	sharedMu sync.Mutex
	shared   = map[string]*Store{}
)

// Shared returns the store for the given data directory, creating it on
// first use. Stores are cached per directory so that all components observe
// the same state within a process.
func Shared(dir string) (*Store, error) {
	path, err := filepath.Abs(filepath.Join(dir, prefsFile))
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidArgument, err)
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if s, ok := shared[path]; ok {
		return s, nil
	}

	s, err := open(dir, path)
	if err != nil {
		return nil, err
	}
	shared[path] = s

	return s, nil
}

func open(dir, path string) (*Store, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStoreInit, err)
	}

	s := &Store{
		path:   path,
		values: map[string]string{},
	}

	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreInit, err)
	}

	if err := json.Unmarshal(bytes, &s.values); err != nil {
		// A corrupt prefs file resets persisted counters rather than
		// rendering telemetry unusable.
		s.values = map[string]string{}
	}

	return s, nil
}

// Int64 returns the stored value for key, or def when absent or unparsable.
func (s *Store) Int64(key string, def int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.values[key]
	if !ok {
		return def
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}

	return value
}

// SetInt64 stores the value for key and persists the store.
func (s *Store) SetInt64(key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = strconv.FormatInt(value, 10)

	return s.save()
}

// String returns the stored value for key, or def when absent.
func (s *Store) String(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := s.values[key]; ok {
		return raw
	}

	return def
}

// SetString stores the value for key and persists the store.
func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return s.save()
}

func (s *Store) save() error {
	bytes, err := json.Marshal(s.values)
	if err != nil {
		return errors.New().Wrap(ErrStoreWrite, err)
	}

	if err := os.WriteFile(s.path, bytes, defaultFilePerm); err != nil {
		return errors.New().Wrap(ErrStoreWrite, err)
	}

	return nil
}
