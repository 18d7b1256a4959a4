package supabase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicationaccess/domain/events"
)

func TestToRowFromRow_RoundTripsPayloadFields(t *testing.T) {
	e := events.Event{
		Header: events.Header{
			EventID:   "e1",
			Kind:      events.KindAddGroupToEntityMapping,
			Timestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			HashCode:  7,
		},
		GroupToEntityGroup: "engineering",
		EntityType:         "document",
		Entity:             "readme",
	}

	row := toRow(e)
	assert.Equal(t, "e1", row.EventID)

	back := fromRow(row)
	assert.Equal(t, e.Header.EventID, back.Header.EventID)
	assert.Equal(t, e.Header.Kind, back.Header.Kind)
	assert.True(t, e.Header.Timestamp.Equal(back.Header.Timestamp))
	assert.Equal(t, e.GroupToEntityGroup, back.GroupToEntityGroup)
	assert.Equal(t, e.EntityType, back.EntityType)
	assert.Equal(t, e.Entity, back.Entity)
}

func TestUnmarshalRows_DecodesJSONArray(t *testing.T) {
	data := []byte(`[{"event_id":"e1","kind":"ADD_USER","user_name":"alice"}]`)
	var rows []eventRow
	require.NoError(t, unmarshalRows(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "e1", rows[0].EventID)
	assert.Equal(t, "alice", rows[0].User)
}
