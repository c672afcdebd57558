// Package ping assembles measurement values into storable, uploadable
// telemetry pings. Every ping type has one builder; builders are registered
// with the telemetry core and invoked on its worker.
package ping

// Ping types produced by the stock builders.
const (
	TypeCore = "core"
	// TypeEvents is the legacy events ping, kept for servers that do not
	// accept mobile-events yet.
	TypeEvents       = "events"
	TypeMobileEvents = "mobile-events"
)

// Ping is one built telemetry payload, ready to be stored and uploaded.
type Ping struct {
	Type       string
	DocumentID string
	UploadPath string
	Payload    map[string]any
}

// Builder produces pings of one type from accumulated measurements.
type Builder interface {
	// Type returns the unique ping type this builder produces.
	Type() string
	// CanBuild reports whether enough data has accumulated to be worth
	// building a ping. It must be free of side effects.
	CanBuild() bool
	// Build assembles a ping from the current measurement state. Building
	// flushes measurements, so accumulated state is reset even when the
	// ping is later dropped.
	Build() (*Ping, error)
}

// Serializer encodes a built ping into the body bytes that are stored and
// uploaded.
type Serializer interface {
	Serialize(p *Ping) ([]byte, error)
}
