package ping

import (
	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/measurement"
)

const eventsVersion = 1

// EventsBuilder produces the legacy "events" ping. It is consulted for
// event batching only when no mobile-events builder is registered.
type EventsBuilder struct {
	builder
	events *measurement.Events
}

func NewEventsBuilder(cfg *config.Configuration) (*EventsBuilder, error) {
	base, events, err := eventsBase(cfg, TypeEvents, eventsVersion)
	if err != nil {
		return nil, err
	}

	return &EventsBuilder{builder: base, events: events}, nil
}

// CanBuild reports whether enough events accumulated to justify an upload.
func (b *EventsBuilder) CanBuild() bool {
	return b.events.Count() >= b.cfg.MinimumEventsForUpload
}

func (b *EventsBuilder) Build() (*Ping, error) {
	return b.build()
}

func (b *EventsBuilder) EventsMeasurement() *measurement.Events {
	return b.events
}

// eventsBase assembles the measurement set shared by both event ping
// flavors.
func eventsBase(cfg *config.Configuration, pingType string, version int) (builder, *measurement.Events, error) {
	clientID, err := measurement.NewClientID(cfg)
	if err != nil {
		return builder{}, nil, err
	}
	sequence, err := measurement.NewSequence(cfg, pingType)
	if err != nil {
		return builder{}, nil, err
	}
	events := measurement.NewEvents()

	return builder{
		cfg:      cfg,
		pingType: pingType,
		version:  version,
		measurements: []measurement.Measurement{
			clientID,
			sequence,
			measurement.NewLocale(),
			measurement.NewOperatingSystem(),
			measurement.NewOperatingSystemVersion(),
			measurement.NewArchitecture(),
			measurement.NewCreatedTimestamp(),
			measurement.NewTimezoneOffset(),
			events,
		},
	}, events, nil
}
