package ping

import (
	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/measurement"
)

const mobileEventsVersion = 1

// MobileEventsBuilder produces the "mobile-events" ping, the current event
// batch format. When registered it takes precedence over the legacy events
// builder.
type MobileEventsBuilder struct {
	builder
	events *measurement.Events
}

func NewMobileEventsBuilder(cfg *config.Configuration) (*MobileEventsBuilder, error) {
	base, events, err := eventsBase(cfg, TypeMobileEvents, mobileEventsVersion)
	if err != nil {
		return nil, err
	}

	return &MobileEventsBuilder{builder: base, events: events}, nil
}

// CanBuild reports whether enough events accumulated to justify an upload.
func (b *MobileEventsBuilder) CanBuild() bool {
	return b.events.Count() >= b.cfg.MinimumEventsForUpload
}

func (b *MobileEventsBuilder) Build() (*Ping, error) {
	return b.build()
}

func (b *MobileEventsBuilder) EventsMeasurement() *measurement.Events {
	return b.events
}
