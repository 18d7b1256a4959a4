package supabase

import (
	"encoding/json"
	"time"

	"applicationaccess/domain/events"
)

func unmarshalRows(data []byte, rows *[]eventRow) error {
	return json.Unmarshal(data, rows)
}

func toRow(e events.Event) eventRow {
	return eventRow{
		EventID:           e.Header.EventID,
		Kind:              string(e.Header.Kind),
		HashCode:          e.Header.HashCode,
		TimestampUnixNano: e.Header.Timestamp.UnixNano(),

		User:  e.User,
		Group: e.Group,

		UserToGroupUser:  e.UserToGroupUser,
		UserToGroupGroup: e.UserToGroupGroup,

		GroupToGroupFrom: e.GroupToGroupFrom,
		GroupToGroupTo:   e.GroupToGroupTo,

		ApplicationComponent: e.ApplicationComponent,
		AccessLevel:          e.AccessLevel,

		EntityType: e.EntityType,
		Entity:     e.Entity,

		UserToEntityUser:   e.UserToEntityUser,
		GroupToEntityGroup: e.GroupToEntityGroup,
	}
}

func fromRow(row eventRow) events.Event {
	e := events.Event{
		Header: events.Header{
			EventID:  row.EventID,
			Kind:     events.Kind(row.Kind),
			HashCode: row.HashCode,
		},
		User:  row.User,
		Group: row.Group,

		UserToGroupUser:  row.UserToGroupUser,
		UserToGroupGroup: row.UserToGroupGroup,

		GroupToGroupFrom: row.GroupToGroupFrom,
		GroupToGroupTo:   row.GroupToGroupTo,

		ApplicationComponent: row.ApplicationComponent,
		AccessLevel:          row.AccessLevel,

		EntityType: row.EntityType,
		Entity:     row.Entity,

		UserToEntityUser:   row.UserToEntityUser,
		GroupToEntityGroup: row.GroupToEntityGroup,
	}
	e.Header.Timestamp = time.Unix(0, row.TimestampUnixNano).UTC()
	return e
}
