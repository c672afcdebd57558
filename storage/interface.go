package storage

import (
	"context"

	"codeberg.org/mutker/telemetry/ping"
)

// Repository defines the interface for durable ping storage. Stored pings
// survive process restarts and are handed out again during upload passes.
type Repository interface {
	// Store persists p, evicting the oldest pings of the same type beyond
	// the configured cap.
	Store(ctx context.Context, p *ping.Ping) error
	// Count reports how many pings of pingType are stored.
	Count(ctx context.Context, pingType string) (int, error)
	// Types lists the ping types with at least one stored ping.
	Types(ctx context.Context) ([]string, error)
	// Process hands every stored ping of pingType to process, oldest
	// first. A true return deletes the ping and moves on; false stops the
	// pass and keeps the remaining pings. It reports whether the pass
	// consumed every ping.
	Process(ctx context.Context, pingType string, process func(documentID, uploadPath string, payload []byte) bool) (bool, error)
	Close() error
}
