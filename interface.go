package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/event"
	"codeberg.org/mutker/telemetry/ping"
)

// Storage persists built pings until an upload pass drains them.
type Storage interface {
	Store(ctx context.Context, p *ping.Ping) error
}

// Client uploads one serialized ping body to an endpoint path. The boolean
// reports whether the ping is done: delivered, or permanently rejected and
// not worth retrying.
type Client interface {
	Upload(ctx context.Context, cfg *config.Configuration, path string, body []byte) (bool, error)
}

// Scheduler arranges for stored pings to be uploaded eventually.
type Scheduler interface {
	ScheduleUpload(ctx context.Context, cfg *config.Configuration) error
}

// Decision is an event handler's verdict on one recorded event.
type Decision int

const (
	// Enqueue applies default handling: the event is batched toward the
	// next events ping.
	Enqueue Decision = iota
	// Suppress marks the event as fully handled; default batching is
	// skipped.
	Suppress
)

// EventHandler inspects every recorded event on the caller's goroutine,
// before default handling. Handlers must be fast and must not call back
// into the telemetry core.
type EventHandler interface {
	Handle(ev *event.Event) Decision
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(ev *event.Event) Decision

func (f EventHandlerFunc) Handle(ev *event.Event) Decision {
	return f(ev)
}

// Observer receives failures from units executed on the worker lane, after
// they have been logged. Record keeps its fire-and-forget shape; an observer
// is how operators notice storage or collaborator breakage.
type Observer interface {
	WorkerFailure(op string, err error)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(op string, err error)

func (f ObserverFunc) WorkerFailure(op string, err error) {
	f(op, err)
}

// Option configures optional collaborators at Initialize time.
type Option func(*Telemetry)

// WithEventHandler installs the application's event interception handler.
func WithEventHandler(handler EventHandler) Option {
	return func(t *Telemetry) {
		t.handler = handler
	}
}

// WithObserver installs a failure observer for the worker lane.
func WithObserver(observer Observer) Option {
	return func(t *Telemetry) {
		t.observer = observer
	}
}

// WithDrainTimeout bounds how long Shutdown waits for queued work.
func WithDrainTimeout(d time.Duration) Option {
	return func(t *Telemetry) {
		if d > 0 {
			t.drainTimeout = d
		}
	}
}
