package storage

import (
	"path/filepath"

	"codeberg.org/mutker/telemetry/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBFile  = "pings.db"

	defaultMaxPingsPerType = 40
)

type Config struct {
	DBPath          string
	MaxPingsPerType int
}

func DefaultConfig(dataDir string) Config {
	return Config{
		DBPath:          filepath.Join(dataDir, defaultDBFile),
		MaxPingsPerType: defaultMaxPingsPerType,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.MaxPingsPerType <= 0 {
		return errFactory.New(ErrInvalidPingCap)
	}

	return nil
}
