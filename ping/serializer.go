package ping

import (
	"encoding/json"

	"codeberg.org/mutker/telemetry/errors"
)

// JSONSerializer encodes ping payloads as canonical JSON objects.
type JSONSerializer struct{}

func NewJSONSerializer() JSONSerializer {
	return JSONSerializer{}
}

func (JSONSerializer) Serialize(p *Ping) ([]byte, error) {
	errFactory := errors.New()

	body, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, errFactory.Wrap(ErrSerializeFailed, err)
	}

	return body, nil
}
