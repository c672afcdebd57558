package measurement

import (
	"sync"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/prefs"
)

const (
	sessionsField   = "sessions"
	sessionCountKey = "session_count"
)

// SessionCount counts started sessions. The count is persisted so sessions
// from runs that never built a ping still reach the next one.
type SessionCount struct {
	mu    sync.Mutex
	store *prefs.Store
}

func NewSessionCount(cfg *config.Configuration) (*SessionCount, error) {
	store, err := prefs.Shared(cfg.DataDirectory)
	if err != nil {
		return nil, err
	}

	return &SessionCount{store: store}, nil
}

func (*SessionCount) Field() string {
	return sessionsField
}

// CountSession increments the persisted session counter.
func (m *SessionCount) CountSession() error {
	errFactory := errors.New()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.store.Int64(sessionCountKey, 0)
	if err := m.store.SetInt64(sessionCountKey, count+1); err != nil {
		return errFactory.Wrap(ErrPersistFailed, err)
	}

	return nil
}

// Count returns the current persisted session count.
func (m *SessionCount) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Int64(sessionCountKey, 0)
}

// Flush returns the persisted count and resets it to zero.
func (m *SessionCount) Flush() (any, error) {
	errFactory := errors.New()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.store.Int64(sessionCountKey, 0)
	if err := m.store.SetInt64(sessionCountKey, 0); err != nil {
		return nil, errFactory.Wrap(ErrPersistFailed, err)
	}

	return count, nil
}
