package measurement_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/measurement"
)

func testConfig(t *testing.T) *config.Configuration {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDirectory = t.TempDir()

	return cfg
}

func TestSessionDurationLifecycle(t *testing.T) {
	m := measurement.NewSessionDuration()

	require.NoError(t, m.RecordSessionStart(), "Starting a session should not fail")

	err := m.RecordSessionStart()
	require.Error(t, err, "Starting a running session should fail")
	assert.True(t, errors.HasCode(err, measurement.ErrSessionAlreadyStarted), "Error should carry the session_already_started code")

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.RecordSessionEnd(), "Ending a running session should not fail")

	err = m.RecordSessionEnd()
	require.Error(t, err, "Ending without a running session should fail")
	assert.True(t, errors.HasCode(err, measurement.ErrNoSessionStarted), "Error should carry the no_session_started code")
}

func TestSessionDurationFlushResets(t *testing.T) {
	m := measurement.NewSessionDuration()

	value, err := m.Flush()
	require.NoError(t, err, "Flushing with no sessions should not fail")
	assert.Equal(t, int64(0), value, "No sessions should flush as zero seconds")

	require.NoError(t, m.RecordSessionStart(), "Starting a session should not fail")
	require.NoError(t, m.RecordSessionEnd(), "Ending a session should not fail")

	_, err = m.Flush()
	require.NoError(t, err, "Flushing should not fail")

	value, err = m.Flush()
	require.NoError(t, err, "Flushing twice should not fail")
	assert.Equal(t, int64(0), value, "Flush should reset the accumulator")
}

func TestSessionCount(t *testing.T) {
	cfg := testConfig(t)

	m, err := measurement.NewSessionCount(cfg)
	require.NoError(t, err, "Creating a session counter should not fail")

	require.NoError(t, m.CountSession(), "Counting a session should not fail")
	require.NoError(t, m.CountSession(), "Counting a session should not fail")
	assert.Equal(t, int64(2), m.Count(), "Counted sessions should accumulate")

	// A second measurement over the same data directory sees the same state.
	again, err := measurement.NewSessionCount(cfg)
	require.NoError(t, err, "Reopening the session counter should not fail")
	assert.Equal(t, int64(2), again.Count(), "Session counts should be shared via the data directory")

	value, err := m.Flush()
	require.NoError(t, err, "Flushing the session counter should not fail")
	assert.Equal(t, int64(2), value, "Flush should return the accumulated count")
	assert.Equal(t, int64(0), m.Count(), "Flush should reset the persisted count")
}
