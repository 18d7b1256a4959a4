// Package supabase implements the alternate persistent storage tier
// selected by config.Database.Provider == "supabase": a Postgres-backed
// event table reached through the supabase-go client rather than DynamoDB.
// Grounded on the teacher's cmd/ws-connect/main.go, which constructs a
// supabase.Client the same way (supabase.NewClient(url, key, nil)) for JWT
// verification; this package reuses that construction for table access
// instead, since the teacher never needed row-level Postgres operations
// through Supabase itself.
package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"applicationaccess/domain/events"
	"applicationaccess/internal/eventbuffer"
	"applicationaccess/internal/reader"
	"applicationaccess/pkg/accesserrors"
)

const eventsTable = "applicationaccess_events"

var (
	_ eventbuffer.Persister   = (*Store)(nil)
	_ reader.PersistentReader = (*Store)(nil)
)

// eventRow is how an events.Event round-trips through the events table,
// mirroring infrastructure/dynamodb.eventRecord's flattened payload shape.
type eventRow struct {
	EventID              string `json:"event_id"`
	Kind                 string `json:"kind"`
	HashCode             int32  `json:"hash_code"`
	TimestampUnixNano    int64  `json:"timestamp_unix_nano"`
	User                 string `json:"user_name,omitempty"`
	Group                string `json:"group_name,omitempty"`
	UserToGroupUser      string `json:"user_to_group_user,omitempty"`
	UserToGroupGroup     string `json:"user_to_group_group,omitempty"`
	GroupToGroupFrom     string `json:"group_to_group_from,omitempty"`
	GroupToGroupTo       string `json:"group_to_group_to,omitempty"`
	ApplicationComponent string `json:"application_component,omitempty"`
	AccessLevel          string `json:"access_level,omitempty"`
	EntityType           string `json:"entity_type,omitempty"`
	Entity               string `json:"entity,omitempty"`
	UserToEntityUser     string `json:"user_to_entity_user,omitempty"`
	GroupToEntityGroup   string `json:"group_to_entity_group,omitempty"`
}

// Store implements eventbuffer.Persister and reader.PersistentReader
// against a Supabase-hosted Postgres table.
type Store struct {
	client *supabase.Client
	logger *zap.Logger
}

// NewStore constructs a Store from a project URL and service-role key, the
// same two parameters the teacher's supabase.NewClient(url, key, nil) call
// takes.
func NewStore(projectURL, serviceRoleKey string, logger *zap.Logger) (*Store, error) {
	client, err := supabase.NewClient(projectURL, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to construct supabase client: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

// PersistEvents implements eventbuffer.Persister via a bulk insert into the
// events table, keyed by event_id so a retried flush upserts rather than
// duplicates (§4.D edge case).
func (s *Store) PersistEvents(ctx context.Context, batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]eventRow, 0, len(batch))
	for _, e := range batch {
		rows = append(rows, toRow(e))
	}

	_, _, err := s.client.From(eventsTable).
		Insert(rows, true, "event_id", "minimal", "").
		Execute()
	if err != nil {
		return accesserrors.Internal(fmt.Sprintf("failed to persist event batch to supabase: %v", err))
	}

	s.logger.Debug("persisted event batch to supabase", zap.Int("batchSize", len(batch)))
	return nil
}

// Load implements reader.PersistentReader by selecting every event row in
// timestamp order.
func (s *Store) Load(ctx context.Context) ([]events.Event, string, error) {
	var rows []eventRow
	data, _, err := s.client.From(eventsTable).
		Select("*", "", false).
		Order("timestamp_unix_nano", nil).
		Execute()
	if err != nil {
		return nil, "", accesserrors.Internal(fmt.Sprintf("failed to query supabase event table: %v", err))
	}
	if err := unmarshalRows(data, &rows); err != nil {
		return nil, "", accesserrors.Internal(fmt.Sprintf("failed to decode supabase event rows: %v", err))
	}
	if len(rows) == 0 {
		return nil, "", accesserrors.PersistentStorageEmpty()
	}

	out := make([]events.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, out[len(out)-1].Header.EventID, nil
}
