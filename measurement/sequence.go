package measurement

import (
	"sync"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/prefs"
)

const (
	sequenceField     = "seq"
	sequenceKeyPrefix = "seq."
)

// Sequence numbers pings of one type. The counter is persisted so servers
// can detect gaps and duplicates across process restarts.
type Sequence struct {
	mu    sync.Mutex
	store *prefs.Store
	key   string
}

func NewSequence(cfg *config.Configuration, pingType string) (*Sequence, error) {
	store, err := prefs.Shared(cfg.DataDirectory)
	if err != nil {
		return nil, err
	}

	return &Sequence{store: store, key: sequenceKeyPrefix + pingType}, nil
}

func (*Sequence) Field() string {
	return sequenceField
}

// Flush increments the persisted counter and returns the new value, so the
// first ping of a type carries seq 1.
func (m *Sequence) Flush() (any, error) {
	errFactory := errors.New()

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.store.Int64(m.key, 0) + 1
	if err := m.store.SetInt64(m.key, next); err != nil {
		return nil, errFactory.Wrap(ErrPersistFailed, err)
	}

	return next, nil
}
