package ping

import (
	"fmt"

	"github.com/google/uuid"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/measurement"
)

// versionField carries the payload format version of each ping type.
const versionField = "v"

// builder is the shared assembly behind the stock builders: it flushes the
// configured measurements in order and stamps identity and upload path.
type builder struct {
	cfg          *config.Configuration
	pingType     string
	version      int
	measurements []measurement.Measurement
}

func (b *builder) Type() string {
	return b.pingType
}

func (b *builder) build() (*Ping, error) {
	errFactory := errors.New()

	payload := make(map[string]any, len(b.measurements)+1)
	payload[versionField] = b.version
	for _, m := range b.measurements {
		value, err := m.Flush()
		if err != nil {
			return nil, errFactory.Wrap(ErrBuildFailed, err)
		}
		payload[m.Field()] = value
	}

	documentID := uuid.NewString()

	return &Ping{
		Type:       b.pingType,
		DocumentID: documentID,
		UploadPath: uploadPath(b.cfg, b.pingType, documentID),
		Payload:    payload,
	}, nil
}

// uploadPath returns the server route for one ping:
// /submit/telemetry/<document id>/<type>/<app>/<version>/<channel>/<build id>
func uploadPath(cfg *config.Configuration, pingType, documentID string) string {
	return fmt.Sprintf("/submit/telemetry/%s/%s/%s/%s/%s/%s",
		documentID, pingType, cfg.AppName, cfg.AppVersion, cfg.UpdateChannel, cfg.BuildID)
}
