package measurement

import (
	"encoding/json"
	"sync"

	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/event"
)

const eventsField = "events"

// Events accumulates recorded events until the next ping build drains them.
type Events struct {
	mu     sync.Mutex
	events []*event.Event
}

func NewEvents() *Events {
	return &Events{}
}

func (*Events) Field() string {
	return eventsField
}

// Add appends one event to the pending batch.
func (m *Events) Add(ev *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, ev)
}

// Count returns the number of events pending in the current batch.
func (m *Events) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.events)
}

// Flush serializes the pending batch into its array forms and starts a new
// empty batch.
func (m *Events) Flush() (any, error) {
	errFactory := errors.New()

	m.mu.Lock()
	pending := m.events
	m.events = nil
	m.mu.Unlock()

	out := make([]json.RawMessage, 0, len(pending))
	for _, ev := range pending {
		raw, err := ev.ToJSON()
		if err != nil {
			return nil, errFactory.Wrap(ErrFlushFailed, err)
		}
		out = append(out, raw)
	}

	return out, nil
}
