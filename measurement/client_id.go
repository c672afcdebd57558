package measurement

import (
	"github.com/google/uuid"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/prefs"
)

const (
	clientIDField = "clientId"
	clientIDKey   = "client_id"
)

// ClientID is the random identifier that correlates pings from one
// installation. It is generated once and persisted; a corrupt stored value
// is replaced.
type ClientID struct {
	id string
}

func NewClientID(cfg *config.Configuration) (*ClientID, error) {
	errFactory := errors.New()

	store, err := prefs.Shared(cfg.DataDirectory)
	if err != nil {
		return nil, err
	}

	id := store.String(clientIDKey, "")
	if _, parseErr := uuid.Parse(id); id == "" || parseErr != nil {
		id = uuid.NewString()
		if err := store.SetString(clientIDKey, id); err != nil {
			return nil, errFactory.Wrap(ErrPersistFailed, err)
		}
	}

	return &ClientID{id: id}, nil
}

func (*ClientID) Field() string {
	return clientIDField
}

// ClientID returns the stable installation identifier.
func (m *ClientID) ClientID() string {
	return m.id
}

func (m *ClientID) Flush() (any, error) {
	return m.id, nil
}
