package schedule

import (
	"context"

	"codeberg.org/mutker/telemetry/config"
)

// PingStore is the slice of ping storage an upload pass drains.
type PingStore interface {
	Types(ctx context.Context) ([]string, error)
	Process(ctx context.Context, pingType string, process func(documentID, uploadPath string, payload []byte) bool) (bool, error)
}

// Uploader sends one serialized ping and reports whether it is finished.
type Uploader interface {
	Upload(ctx context.Context, cfg *config.Configuration, path string, body []byte) (bool, error)
}
