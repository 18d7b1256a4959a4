// Package dynamodb implements the persistent storage tier (§4.D/§4.G, §6):
// a BulkEventPersister that appends the Writer Node's flushed batches to a
// DynamoDB event table, and a PersistentReader that reconstructs a full
// snapshot for a Reader Node that has fallen out of the EventCache's
// retention window. Grounded on the teacher's
// internal/infrastructure/persistence/dynamodb/event_store.go append-only,
// single-table event record shape, adapted from the teacher's per-aggregate
// partition key to a single cluster-wide event stream partitioned by a
// constant key, since every event here mutates one shared access graph
// rather than one aggregate root.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
)

// streamPartitionKey is the single PK every event record shares: the access
// graph this cluster serves is one stream, not one-per-aggregate, so there
// is nothing to partition on besides the event's own sort key.
const streamPartitionKey = "EVENT_STREAM"

// eventRecord is how an events.Event round-trips through DynamoDB, mirroring
// the teacher's EventRecord shape but flattened onto this module's
// tagged-union payload instead of a generic EventData map.
type eventRecord struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	EventID           string `dynamodbav:"EventID"`
	Kind              string `dynamodbav:"Kind"`
	HashCode          int32  `dynamodbav:"HashCode"`
	TimestampUnixNano int64  `dynamodbav:"TimestampUnixNano"`

	User  string `dynamodbav:"User,omitempty"`
	Group string `dynamodbav:"Group,omitempty"`

	UserToGroupUser  string `dynamodbav:"UserToGroupUser,omitempty"`
	UserToGroupGroup string `dynamodbav:"UserToGroupGroup,omitempty"`

	GroupToGroupFrom string `dynamodbav:"GroupToGroupFrom,omitempty"`
	GroupToGroupTo   string `dynamodbav:"GroupToGroupTo,omitempty"`

	ApplicationComponent string `dynamodbav:"ApplicationComponent,omitempty"`
	AccessLevel          string `dynamodbav:"AccessLevel,omitempty"`

	EntityType string `dynamodbav:"EntityType,omitempty"`
	Entity     string `dynamodbav:"Entity,omitempty"`

	UserToEntityUser   string `dynamodbav:"UserToEntityUser,omitempty"`
	GroupToEntityGroup string `dynamodbav:"GroupToEntityGroup,omitempty"`
}

// Store implements both eventbuffer.Persister and reader.PersistentReader
// against a single DynamoDB table, satisfying the config.oneof=dynamodb
// persistence provider.
type Store struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewStore constructs a Store over an existing DynamoDB client.
func NewStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *Store {
	return &Store{client: client, tableName: tableName, logger: logger}
}

// PersistEvents implements eventbuffer.Persister via DynamoDB's BatchWriteItem,
// keyed by EventID so a retried flush after a partial failure overwrites
// rather than duplicates (§4.D edge case).
func (s *Store) PersistEvents(ctx context.Context, batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}

	const maxBatchSize = 25 // DynamoDB BatchWriteItem limit
	for i := 0; i < len(batch); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.writeChunk(ctx, batch[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeChunk(ctx context.Context, chunk []events.Event) error {
	writeRequests := make([]types.WriteRequest, 0, len(chunk))
	for _, e := range chunk {
		record := toRecord(e)
		av, err := attributevalue.MarshalMap(record)
		if err != nil {
			return accesserrors.Internal(fmt.Sprintf("failed to marshal event record: %v", err))
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.tableName: writeRequests},
	})
	if err != nil {
		return accesserrors.Internal(fmt.Sprintf("failed to persist event batch: %v", err))
	}
	s.logger.Debug("persisted event batch to dynamodb",
		zap.Int("batchSize", len(chunk)),
		zap.String("table", s.tableName),
	)
	return nil
}

// Load implements reader.PersistentReader by querying every event record in
// timestamp order and returning the last event's ID as the snapshot's
// high-water mark (§4.G reload path).
func (s *Store) Load(ctx context.Context) ([]events.Event, string, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: streamPartitionKey},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, "", accesserrors.Internal(fmt.Sprintf("failed to query event stream: %v", err))
		}
		items = append(items, resp.Items...)
		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	if len(items) == 0 {
		return nil, "", accesserrors.PersistentStorageEmpty()
	}

	out := make([]events.Event, 0, len(items))
	for _, item := range items {
		var record eventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, "", accesserrors.Internal(fmt.Sprintf("failed to unmarshal event record: %v", err))
		}
		out = append(out, fromRecord(record))
	}
	return out, out[len(out)-1].Header.EventID, nil
}

func toRecord(e events.Event) eventRecord {
	return eventRecord{
		PK:                streamPartitionKey,
		SK:                fmt.Sprintf("EVENT#%020d#%s", e.Header.Timestamp.UnixNano(), e.Header.EventID),
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

func fromRecord(r eventRecord) events.Event {
	e := events.Event{
		Header: events.Header{
			EventID:  r.EventID,
			Kind:     events.Kind(r.Kind),
			HashCode: r.HashCode,
		},
		User:  r.User,
		Group: r.Group,

		UserToGroupUser:  r.UserToGroupUser,
		UserToGroupGroup: r.UserToGroupGroup,

		GroupToGroupFrom: r.GroupToGroupFrom,
		GroupToGroupTo:   r.GroupToGroupTo,

		ApplicationComponent: r.ApplicationComponent,
		AccessLevel:          r.AccessLevel,

		EntityType: r.EntityType,
		Entity:     r.Entity,

		UserToEntityUser:   r.UserToEntityUser,
		GroupToEntityGroup: r.GroupToEntityGroup,
	}
	e.Header.Timestamp = time.Unix(0, r.TimestampUnixNano).UTC()
	return e
}
