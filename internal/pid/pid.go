// Package pid guards a telemetry data directory against concurrent
// writers. The preference files and the ping database assume a single
// owning process; a lock left behind by a crashed process is reclaimed.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/mutker/telemetry/errors"
)

const (
	pidFile = "telemetry.pid"

	dirPerm  = 0o755
	filePerm = 0o600
)

// Errors
const ErrAlreadyRunning = errors.ErrorCode("pid_already_running")

// Write claims dataDir for the current process. It fails when another live
// process holds the claim; unreadable and stale locks are reclaimed.
func Write(dataDir string) error {
	errFactory := errors.New()
	path := filepath.Join(dataDir, pidFile)

	if raw, err := os.ReadFile(path); err == nil {
		if owner, err := strconv.Atoi(string(raw)); err == nil {
			process, err := os.FindProcess(owner)
			if err == nil && process.Signal(syscall.Signal(0)) == nil {
				return errFactory.WithData(ErrAlreadyRunning, owner)
			}
		}
	}

	if err := os.MkdirAll(dataDir, dirPerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), filePerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove releases the claim on dataDir. A missing lock is not an error.
func Remove(dataDir string) error {
	errFactory := errors.New()
	path := filepath.Join(dataDir, pidFile)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
