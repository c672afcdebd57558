// Package event defines the immutable value object describing one discrete
// occurrence inside an application, such as a menu item being tapped.
// Events carry a timestamp relative to process start, a category/method/object
// triple identifying what happened, and an optional value and extras map.
package event

import (
	"encoding/json"
	"time"

	"codeberg.org/mutker/telemetry/errors"
)

// Field length limits. Longer values are truncated so a single malformed
// caller cannot inflate ping payloads.
const (
	maxLengthCategory   = 30
	maxLengthMethod     = 20
	maxLengthObject     = 20
	maxLengthValue      = 80
	maxLengthExtraKey   = 15
	maxLengthExtraValue = 80
	maxExtraKeys        = 10
)

var processStart = time.Now()

// Event describes one occurrence. Construct it with New and enrich it with
// WithValue and WithExtra before recording.
type Event struct {
	timestamp int64
	category  string
	method    string
	object    string
	value     string
	extras    map[string]string
}

// New creates an event stamped with the current offset from process start.
// The object may be empty when the occurrence has no target.
func New(category, method, object string) *Event {
	return &Event{
		timestamp: time.Since(processStart).Milliseconds(),
		category:  clamp(category, maxLengthCategory),
		method:    clamp(method, maxLengthMethod),
		object:    clamp(object, maxLengthObject),
	}
}

// WithValue attaches a free-form value to the event.
func (e *Event) WithValue(value string) *Event {
	e.value = clamp(value, maxLengthValue)

	return e
}

// WithExtra attaches one key/value pair. At most maxExtraKeys distinct keys
// are kept; further keys are dropped.
func (e *Event) WithExtra(key, value string) *Event {
	if e.extras == nil {
		e.extras = make(map[string]string, 1)
	}
	key = clamp(key, maxLengthExtraKey)
	if _, ok := e.extras[key]; !ok && len(e.extras) >= maxExtraKeys {
		return e
	}
	e.extras[key] = clamp(value, maxLengthExtraValue)

	return e
}

func (e *Event) Timestamp() int64 { return e.timestamp }

func (e *Event) Category() string { return e.category }

func (e *Event) Method() string { return e.method }

func (e *Event) Object() string { return e.object }

func (e *Event) Value() string { return e.value }

// Extras returns a copy of the attached key/value pairs.
func (e *Event) Extras() map[string]string {
	if len(e.extras) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.extras))
	for k, v := range e.extras {
		out[k] = v
	}

	return out
}

// ToJSON renders the compact array form
// [timestamp, category, method, object, value, extras] with unset trailing
// parts omitted. An empty object or value serializes as null when a later
// part forces its presence.
func (e *Event) ToJSON() ([]byte, error) {
	errFactory := errors.New()

	parts := []any{e.timestamp, e.category, e.method, nullable(e.object)}
	if e.value != "" || len(e.extras) > 0 {
		parts = append(parts, nullable(e.value))
	}
	if len(e.extras) > 0 {
		parts = append(parts, e.extras)
	}

	raw, err := json.Marshal(parts)
	if err != nil {
		return nil, errFactory.Wrap(ErrEncodeFailed, err)
	}

	return raw, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func clamp(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen])
}
