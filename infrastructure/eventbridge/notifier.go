// Package eventbridge adapts AWS EventBridge as an optional secondary sink
// on the Writer Node's distributor fan-out (§4.E): alongside the mandatory
// BulkEventPersister and EventCache publication, a configured
// Notifier lets external subscribers (audit trails, search
// indexers) see mutation events without coupling them to the cluster's own
// wire protocol. Grounded on the teacher's
// infrastructure/messaging/eventbridge/publisher.go, generalized from the
// teacher's DomainEvent interface to this module's tagged-union events.Event.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"applicationaccess/domain/events"
)

const eventSource = "applicationaccess"

// Notifier publishes Events to an EventBridge bus. It implements
// events.Sink, so it can be plugged directly into the Writer Node's
// distributor alongside other events.Sink implementations.
type Notifier struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *Notifier {
	return &Notifier{client: client, eventBusName: eventBusName, logger: logger}
}

// Append implements events.Sink by publishing e as a single-entry batch.
func (n *Notifier) Append(e events.Event) error {
	return n.PublishBatch(context.Background(), []events.Event{e})
}

// PublishBatch sends multiple events to EventBridge, chunking into batches
// of 10 (EventBridge's PutEvents limit per call).
func (n *Notifier) PublishBatch(ctx context.Context, batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}
	const batchSize = 10
	for i := 0; i < len(batch); i += batchSize {
		end := i + batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := n.publishOneBatch(ctx, batch[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) publishOneBatch(ctx context.Context, batch []events.Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, e := range batch {
		data, err := json.Marshal(e)
		if err != nil {
			n.logger.Error("failed to marshal event",
				zap.Error(err),
				zap.String("kind", string(e.Header.Kind)),
			)
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(n.eventBusName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(string(e.Header.Kind)),
			Detail:       aws.String(string(data)),
			Time:         aws.Time(e.Header.Timestamp),
			Resources:    []string{fmt.Sprintf("arn:applicationaccess:event:%s", e.Header.EventID)},
		})
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := n.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				n.logger.Error("failed to publish event",
					zap.String("kind", string(batch[i].Header.Kind)),
					zap.String("errorCode", *entry.ErrorCode),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	n.logger.Debug("events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", n.eventBusName),
	)
	return nil
}

// PublishWithRetry publishes batch with exponential backoff, matching the
// teacher's publishWithRetry: 100ms initial delay, doubling, three
// attempts.
func (n *Notifier) PublishWithRetry(ctx context.Context, batch []events.Event) error {
	const maxRetries = 3
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := n.PublishBatch(ctx, batch)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxRetries-1 {
			n.logger.Warn("retrying event publication",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed to publish events after %d attempts: %w", maxRetries, lastErr)
}
