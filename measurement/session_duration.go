package measurement

import (
	"sync"
	"time"

	"codeberg.org/mutker/telemetry/errors"
)

const durationsField = "durations"

// SessionDuration accumulates the total time spent in completed sessions,
// in seconds. A session still running when a ping is built contributes only
// after it ends.
type SessionDuration struct {
	mu          sync.Mutex
	started     bool
	startedAt   time.Time
	accumulated time.Duration
}

func NewSessionDuration() *SessionDuration {
	return &SessionDuration{}
}

func (*SessionDuration) Field() string {
	return durationsField
}

// RecordSessionStart marks the beginning of a session. Starting a session
// while one is running is an error.
func (m *SessionDuration) RecordSessionStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New().New(ErrSessionAlreadyStarted)
	}
	m.started = true
	m.startedAt = time.Now()

	return nil
}

// RecordSessionEnd adds the elapsed session time to the accumulator.
func (m *SessionDuration) RecordSessionEnd() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return errors.New().New(ErrNoSessionStarted)
	}
	m.started = false
	m.accumulated += time.Since(m.startedAt)

	return nil
}

// Flush returns the accumulated seconds and resets the accumulator.
func (m *SessionDuration) Flush() (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seconds := int64(m.accumulated / time.Second)
	m.accumulated = 0

	return seconds, nil
}
