package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/telemetry/internal/prefs"
)

func TestDefaultsForMissingKeys(t *testing.T) {
	store, err := prefs.Shared(t.TempDir())
	require.NoError(t, err, "open store")

	assert.Equal(t, int64(7), store.Int64("missing", 7), "expected the int default")
	assert.Equal(t, "fallback", store.String("missing", "fallback"), "expected the string default")
}

func TestSetAndGet(t *testing.T) {
	store, err := prefs.Shared(t.TempDir())
	require.NoError(t, err, "open store")

	require.NoError(t, store.SetInt64("seq.core", 3), "set int value")
	require.NoError(t, store.SetString("client_id", "abc"), "set string value")

	assert.Equal(t, int64(3), store.Int64("seq.core", 0), "expected the stored int")
	assert.Equal(t, "abc", store.String("client_id", ""), "expected the stored string")
}

func TestSharedReturnsSameStorePerDirectory(t *testing.T) {
	dir := t.TempDir()

	first, err := prefs.Shared(dir)
	require.NoError(t, err, "open store")
	second, err := prefs.Shared(dir)
	require.NoError(t, err, "open store again")
	assert.Same(t, first, second, "expected one store per directory")

	other, err := prefs.Shared(t.TempDir())
	require.NoError(t, err, "open store for another directory")
	assert.NotSame(t, first, other, "expected distinct stores per directory")
}

func TestValuesSurviveReload(t *testing.T) {
	dir := t.TempDir()

	store, err := prefs.Shared(dir)
	require.NoError(t, err, "open store")
	require.NoError(t, store.SetInt64("sessions", 12), "persist value")

	// A fresh process would read the file from scratch; simulate by moving
	// the data to a directory the shared cache has not seen.
	reloadDir := t.TempDir()
	raw, err := os.ReadFile(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err, "read prefs file")
	require.NoError(t, os.WriteFile(filepath.Join(reloadDir, "prefs.json"), raw, 0o600), "copy prefs file")

	reloaded, err := prefs.Shared(reloadDir)
	require.NoError(t, err, "open copied store")
	assert.Equal(t, int64(12), reloaded.Int64("sessions", 0), "expected the persisted value")
}

func TestCorruptFileResetsValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs.json"), []byte("{not json"), 0o600), "plant corrupt file")

	store, err := prefs.Shared(dir)
	require.NoError(t, err, "a corrupt file must not fail the open")
	assert.Equal(t, int64(0), store.Int64("sessions", 0), "expected reset values")

	require.NoError(t, store.SetInt64("sessions", 1), "store is writable after reset")
}

func TestUnparsableIntFallsBack(t *testing.T) {
	store, err := prefs.Shared(t.TempDir())
	require.NoError(t, err, "open store")

	require.NoError(t, store.SetString("sessions", "many"), "store non-numeric value")
	assert.Equal(t, int64(4), store.Int64("sessions", 4), "expected the default for an unparsable value")
}
