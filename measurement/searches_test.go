package measurement_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/measurement"
)

func TestSearchesRecordAndFlush(t *testing.T) {
	cfg := testConfig(t)

	m, err := measurement.NewSearches(cfg)
	require.NoError(t, err, "Creating the searches measurement should not fail")

	require.NoError(t, m.RecordSearch("actionbar", "ddg"), "Recording a search should not fail")
	require.NoError(t, m.RecordSearch("actionbar", "ddg"), "Recording a search should not fail")
	require.NoError(t, m.RecordSearch("suggestion", "wikipedia"), "Recording a search should not fail")

	assert.Equal(t, int64(2), m.Count("actionbar", "ddg"), "Repeated searches should accumulate per key")

	value, err := m.Flush()
	require.NoError(t, err, "Flushing searches should not fail")
	counts, ok := value.(map[string]int64)
	require.True(t, ok, "Flushed searches should be a counter map")
	assert.Equal(t, map[string]int64{"actionbar.ddg": 2, "suggestion.wikipedia": 1}, counts, "Flush should return all counters")

	assert.Equal(t, int64(0), m.Count("actionbar", "ddg"), "Flush should reset the counters")
}

func TestSearchesRejectEmptyParts(t *testing.T) {
	m, err := measurement.NewSearches(testConfig(t))
	require.NoError(t, err, "Creating the searches measurement should not fail")

	err = m.RecordSearch("", "ddg")
	require.Error(t, err, "An empty location should be rejected")
	assert.True(t, errors.HasCode(err, measurement.ErrInvalidSearch), "Error should carry the invalid_search code")

	err = m.RecordSearch("actionbar", "")
	require.Error(t, err, "An empty identifier should be rejected")
}

func TestSearchesKeyCap(t *testing.T) {
	m, err := measurement.NewSearches(testConfig(t))
	require.NoError(t, err, "Creating the searches measurement should not fail")

	for i := 0; i < 150; i++ {
		require.NoError(t, m.RecordSearch("listitem", "engine"+strconv.Itoa(i)), "Recording within or beyond the cap should not fail")
	}

	value, err := m.Flush()
	require.NoError(t, err, "Flushing searches should not fail")
	counts := value.(map[string]int64)
	assert.Len(t, counts, 100, "Distinct counters should be capped")

	assert.Equal(t, int64(0), counts["listitem.engine120"], "Keys beyond the cap should be dropped")
	assert.Equal(t, int64(1), counts["listitem.engine42"], "Keys within the cap should be kept")
}

func TestSearchesPersistAcrossInstances(t *testing.T) {
	cfg := testConfig(t)

	m, err := measurement.NewSearches(cfg)
	require.NoError(t, err, "Creating the searches measurement should not fail")
	require.NoError(t, m.RecordSearch("actionbar", "ddg"), "Recording a search should not fail")

	again, err := measurement.NewSearches(cfg)
	require.NoError(t, err, "Reopening the searches measurement should not fail")
	assert.Equal(t, int64(1), again.Count("actionbar", "ddg"), "Counters should be restored from the data directory")
}
