package measurement

import "sync"

const defaultSearchField = "defaultSearch"

// DefaultSearchEngineProvider supplies the current default search engine
// identifier. An empty return means the engine is unknown.
type DefaultSearchEngineProvider func() string

// DefaultSearch reports the default search engine at ping build time. The
// provider is invoked lazily during Flush, on the telemetry worker.
type DefaultSearch struct {
	mu       sync.Mutex
	provider DefaultSearchEngineProvider
}

func NewDefaultSearch() *DefaultSearch {
	return &DefaultSearch{}
}

func (*DefaultSearch) Field() string {
	return defaultSearchField
}

// SetProvider installs or replaces the provider. A nil provider clears it.
func (m *DefaultSearch) SetProvider(provider DefaultSearchEngineProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.provider = provider
}

// Flush returns the provider's current answer, or nil when no provider is
// installed or the engine is unknown.
func (m *DefaultSearch) Flush() (any, error) {
	m.mu.Lock()
	provider := m.provider
	m.mu.Unlock()

	if provider == nil {
		return nil, nil
	}
	identifier := provider()
	if identifier == "" {
		return nil, nil
	}

	return identifier, nil
}
