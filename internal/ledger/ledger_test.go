package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/db"
)

func newTestLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(database.DB)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLedgerAppendAndQuery(t *testing.T) {
	l, now := newTestLedger(t)

	require.NoError(t, l.Append(EventBridgeLinked, "bridge-1", "", nil))
	*now = now.Add(time.Second)
	require.NoError(t, l.Append(EventDeviceAdded, "bridge-1", "hue:0017", map[string]any{"name": "Desk"}))
	*now = now.Add(time.Second)
	require.NoError(t, l.Append(EventDeviceAction, "bridge-1", "hue:0017", map[string]any{"action": "on-click"}))
	require.NoError(t, l.Append(EventDeviceAction, "bridge-1", "hue:0099", map[string]any{"action": "off-click"}))

	actions, err := l.GetByType(EventDeviceAction, 10)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	// same timestamp, newest insert first
	assert.Equal(t, "hue:0099", actions[0].DeviceID)
	assert.Equal(t, "off-click", actions[0].Payload["action"])

	history, err := l.GetByDevice("hue:0017", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, EventDeviceAction, history[0].EventType)
	assert.Equal(t, EventDeviceAdded, history[1].EventType)
	assert.Equal(t, "Desk", history[1].Payload["name"])
	assert.Equal(t, "bridge-1", history[1].Source)

	linked, err := l.GetByType(EventBridgeLinked, 10)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Nil(t, linked[0].Payload)
	assert.Empty(t, linked[0].DeviceID)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), linked[0].Timestamp)
}

func TestLedgerTimeRangeAndRetention(t *testing.T) {
	l, now := newTestLedger(t)
	start := *now

	require.NoError(t, l.Append(EventDeviceAdded, "b", "old", nil))
	*now = now.Add(48 * time.Hour)
	require.NoError(t, l.Append(EventDeviceAdded, "b", "new", nil))

	entries, err := l.GetByTimeRange(start, start.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].DeviceID)

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err = l.GetByType(EventDeviceAdded, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].DeviceID)
}
