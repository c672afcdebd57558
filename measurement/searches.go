package measurement

import (
	"encoding/json"
	"sync"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/logger"
	"codeberg.org/mutker/telemetry/internal/prefs"
)

const (
	searchesField = "searches"
	searchesKey   = "searches"

	// maxSearchKeys bounds the number of distinct location.engine counters
	// so hostile engine identifiers cannot grow the payload without limit.
	maxSearchKeys = 100
)

// Searches counts search actions per "location.engine" key. Counters are
// persisted between runs and drained into the next core ping.
type Searches struct {
	mu     sync.Mutex
	store  *prefs.Store
	counts map[string]int64
}

func NewSearches(cfg *config.Configuration) (*Searches, error) {
	store, err := prefs.Shared(cfg.DataDirectory)
	if err != nil {
		return nil, err
	}

	m := &Searches{store: store, counts: map[string]int64{}}
	if raw := store.String(searchesKey, ""); raw != "" {
		// A corrupt snapshot starts the counters over.
		if err := json.Unmarshal([]byte(raw), &m.counts); err != nil {
			m.counts = map[string]int64{}
		}
	}

	return m, nil
}

func (*Searches) Field() string {
	return searchesField
}

// RecordSearch increments the counter for one search location and engine
// identifier.
func (m *Searches) RecordSearch(location, identifier string) error {
	errFactory := errors.New()

	if location == "" || identifier == "" {
		return errFactory.WithData(ErrInvalidSearch, struct {
			Location   string
			Identifier string
		}{location, identifier})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := location + "." + identifier
	if _, ok := m.counts[key]; !ok && len(m.counts) >= maxSearchKeys {
		logger.Debug().Str("key", key).Msg("Search counter limit reached, dropping key")

		return nil
	}
	m.counts[key]++

	return m.persist()
}

// Count returns the current counter for one location and engine identifier.
func (m *Searches) Count(location, identifier string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counts[location+"."+identifier]
}

// Flush returns a copy of all counters and resets them.
func (m *Searches) Flush() (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	m.counts = map[string]int64{}
	if err := m.persist(); err != nil {
		return nil, err
	}

	return out, nil
}

func (m *Searches) persist() error {
	errFactory := errors.New()

	raw, err := json.Marshal(m.counts)
	if err != nil {
		return errFactory.Wrap(ErrPersistFailed, err)
	}
	if err := m.store.SetString(searchesKey, string(raw)); err != nil {
		return errFactory.Wrap(ErrPersistFailed, err)
	}

	return nil
}
