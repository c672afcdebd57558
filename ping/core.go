package ping

import (
	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/measurement"
)

// coreVersion is the payload format version of the core ping.
const coreVersion = 7

// CoreBuilder produces the "core" ping: the per-session snapshot carrying
// the client id, session durations and counts, search counters and the
// environment. Core pings are queued explicitly, typically at session end.
type CoreBuilder struct {
	builder
	sessionDuration *measurement.SessionDuration
	sessionCount    *measurement.SessionCount
	searches        *measurement.Searches
	defaultSearch   *measurement.DefaultSearch
}

func NewCoreBuilder(cfg *config.Configuration) (*CoreBuilder, error) {
	clientID, err := measurement.NewClientID(cfg)
	if err != nil {
		return nil, err
	}
	sequence, err := measurement.NewSequence(cfg, TypeCore)
	if err != nil {
		return nil, err
	}
	sessionCount, err := measurement.NewSessionCount(cfg)
	if err != nil {
		return nil, err
	}
	searches, err := measurement.NewSearches(cfg)
	if err != nil {
		return nil, err
	}
	sessionDuration := measurement.NewSessionDuration()
	defaultSearch := measurement.NewDefaultSearch()

	return &CoreBuilder{
		builder: builder{
			cfg:      cfg,
			pingType: TypeCore,
			version:  coreVersion,
			measurements: []measurement.Measurement{
				clientID,
				sequence,
				measurement.NewLocale(),
				measurement.NewOperatingSystem(),
				measurement.NewOperatingSystemVersion(),
				measurement.NewArchitecture(),
				measurement.NewCreatedDate(),
				measurement.NewTimezoneOffset(),
				sessionDuration,
				sessionCount,
				searches,
				defaultSearch,
			},
		},
		sessionDuration: sessionDuration,
		sessionCount:    sessionCount,
		searches:        searches,
		defaultSearch:   defaultSearch,
	}, nil
}

// CanBuild always reports true: core pings are built on demand.
func (*CoreBuilder) CanBuild() bool {
	return true
}

func (b *CoreBuilder) Build() (*Ping, error) {
	return b.build()
}

func (b *CoreBuilder) SessionDurationMeasurement() *measurement.SessionDuration {
	return b.sessionDuration
}

func (b *CoreBuilder) SessionCountMeasurement() *measurement.SessionCount {
	return b.sessionCount
}

func (b *CoreBuilder) SearchesMeasurement() *measurement.Searches {
	return b.searches
}

func (b *CoreBuilder) DefaultSearchMeasurement() *measurement.DefaultSearch {
	return b.defaultSearch
}
