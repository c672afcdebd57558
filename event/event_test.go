package event_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/telemetry/event"
)

func decode(t *testing.T, ev *event.Event) []any {
	t.Helper()

	raw, err := ev.ToJSON()
	require.NoError(t, err, "Serializing an event should not fail")

	var parts []any
	require.NoError(t, json.Unmarshal(raw, &parts), "Serialized event should be a JSON array")

	return parts
}

func TestToJSONMinimal(t *testing.T) {
	parts := decode(t, event.New("action", "click", "menu"))

	require.Len(t, parts, 4, "Minimal event should have four parts")
	assert.Equal(t, "action", parts[1], "Category should be second")
	assert.Equal(t, "click", parts[2], "Method should be third")
	assert.Equal(t, "menu", parts[3], "Object should be fourth")
	assert.GreaterOrEqual(t, parts[0].(float64), float64(0), "Timestamp should be a non-negative offset")
}

func TestToJSONEmptyObject(t *testing.T) {
	parts := decode(t, event.New("action", "foreground", ""))

	require.Len(t, parts, 4, "Event without object should still have four parts")
	assert.Nil(t, parts[3], "Empty object should serialize as null")
}

func TestToJSONWithValue(t *testing.T) {
	parts := decode(t, event.New("action", "type_url", "search_bar").WithValue("autocomplete"))

	require.Len(t, parts, 5, "Event with value should have five parts")
	assert.Equal(t, "autocomplete", parts[4], "Value should be fifth")
}

func TestToJSONWithExtras(t *testing.T) {
	ev := event.New("action", "click", "menu").WithExtra("to", "settings")
	parts := decode(t, ev)

	require.Len(t, parts, 6, "Event with extras should have six parts")
	assert.Nil(t, parts[4], "Unset value should serialize as null when extras follow")
	assert.Equal(t, map[string]any{"to": "settings"}, parts[5], "Extras should be last")
}

func TestFieldClamping(t *testing.T) {
	long := strings.Repeat("x", 200)
	ev := event.New(long, long, long).WithValue(long).WithExtra(long, long)

	assert.Len(t, ev.Category(), 30, "Category should be clamped")
	assert.Len(t, ev.Method(), 20, "Method should be clamped")
	assert.Len(t, ev.Object(), 20, "Object should be clamped")
	assert.Len(t, ev.Value(), 80, "Value should be clamped")
	for k, v := range ev.Extras() {
		assert.Len(t, k, 15, "Extra key should be clamped")
		assert.Len(t, v, 80, "Extra value should be clamped")
	}
}

func TestExtraKeyLimit(t *testing.T) {
	ev := event.New("action", "click", "menu")
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		ev.WithExtra(k, "v")
	}

	assert.Len(t, ev.Extras(), 10, "At most ten extra keys should be kept")

	ev.WithExtra("a", "updated")
	assert.Equal(t, "updated", ev.Extras()["a"], "Existing keys should stay updatable at the limit")
}

func TestTimestampsAreMonotonic(t *testing.T) {
	first := event.New("action", "click", "menu")
	second := event.New("action", "click", "menu")

	assert.LessOrEqual(t, first.Timestamp(), second.Timestamp(), "Later events should not have earlier timestamps")
}
